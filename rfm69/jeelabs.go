// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package rfm69

import "fmt"

// JeeLabs native rfm69 packet format
//
// Preamble: 5 bytes, sync bytes: 2, packet data: 1 byte destination, 1 byte source, 0..62
// bytes data, std CRC. The first sync byte is 0x2d, the second is the group ID (network number).
//
// The first payload data byte contains the 6-bit destination node ID and two sync parity bits
// at the top. Bit 7 (MSB) is calculated as the group's b7^b5^b3^b1 and bit 6 as the group's
// b6^b4^b2^b0.
//
// The second payload byte contains the 6-bit source node ID and two control bits. Bit 7 is an
// ACK request bit and bit 6 is unassigned.
//
// A packet with destination ID 0 is a broadcast packet, a node ID of 62 is used for
// anonymous tx-only nodes.

// JLHeader is the two byte header of a JeeLabs packet.
type JLHeader struct {
	Src, Dst byte // 6-bit node IDs
	Ack      bool // ACK requested by the sender
}

// JeeLabsSync returns the sync bytes for a JeeLabs group, to be written to REG_SYNCVALUE1/2.
func JeeLabsSync(grp byte) []byte {
	return []byte{0x2d, grp}
}

// jlParity returns the two group parity bits in positions 7 and 6.
func jlParity(grp byte) byte {
	p7 := ((grp >> 7) & 1) ^ ((grp >> 5) & 1) ^ ((grp >> 3) & 1) ^ ((grp >> 1) & 1)
	p6 := ((grp >> 6) & 1) ^ ((grp >> 4) & 1) ^ ((grp >> 2) & 1) ^ ((grp >> 0) & 1)
	return p7<<7 | p6<<6
}

// JLEncode prepends the JeeLabs header for group grp to payload.
func JLEncode(grp byte, h JLHeader, payload []byte) []byte {
	p := make([]byte, len(payload)+2)
	p[0] = h.Dst&0x3f | jlParity(grp)
	p[1] = h.Src & 0x3f
	if h.Ack {
		p[1] |= 0x80
	}
	copy(p[2:], payload)
	return p
}

// JLDecode checks the group parity of a JeeLabs packet, and splits it into header and payload.
func JLDecode(grp byte, pkt []byte) (JLHeader, []byte, error) {
	if len(pkt) < 2 {
		return JLHeader{}, nil, fmt.Errorf("rfm69 JeeLabs decode: packet too short: %d bytes",
			len(pkt))
	}
	if want := jlParity(grp); pkt[0]&0xc0 != want {
		return JLHeader{}, nil, fmt.Errorf(
			"rfm69 JeeLabs decode: bad group parity: got %#x want %#x for group %d",
			pkt[0]&0xc0, want, grp)
	}
	h := JLHeader{Dst: pkt[0] & 0x3f, Src: pkt[1] & 0x3f, Ack: pkt[1]&0x80 != 0}
	return h, pkt[2:], nil
}

// JeeLabsConfig returns DefaultConfig with the sync word set for group grp.
func JeeLabsConfig(grp byte) []RegValue {
	sync := JeeLabsSync(grp)
	regs := make([]RegValue, 0, len(DefaultConfig))
	for _, rv := range DefaultConfig {
		switch rv.Addr {
		case REG_SYNCVALUE1:
			rv.Value = sync[0]
		case REG_SYNCVALUE2:
			rv.Value = sync[1]
		}
		regs = append(regs, rv)
	}
	return regs
}
