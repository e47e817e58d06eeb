// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pixma/devices/gpsnav"
	"github.com/pixma/devices/rfm69"
)

// RxPacket is the structure published to MQTT for packets received on the radio.
type RxPacket struct {
	Packet []byte    `json:"packet"`         // packet, including headers, excl sync, length, CRC
	Rssi   int       `json:"rssi"`           // RSSI in dBm for packet, 0 if unknown
	At     time.Time `json:"at"`             // time the packet was pulled from the radio
	Info   string    `json:"info,omitempty"` // human readable decode, if the format is known
}

// TxPacket is the payload expected via MQTT for packets to be transmitted on the radio.
type TxPacket struct {
	Packet []byte `json:"packet"` // packet, including headers, excl sync, length, CRC
}

// RegRequest is the payload expected via MQTT to read or write a radio register remotely.
type RegRequest struct {
	Addr  byte `json:"addr"`
	Value byte `json:"value"` // ignored for reads
	Write bool `json:"write"`
}

// RegResult is published in response to a RegRequest. Value is the register contents after the
// request was carried out.
type RegResult struct {
	Addr  byte   `json:"addr"`
	Value byte   `json:"value"`
	Error string `json:"error,omitempty"`
}

// radio is the part of *rfm69.Radio the gateway uses.
type radio interface {
	PayloadReady() bool
	ReceiveRSSI(buf []byte) (int, rfm69.RSSI, error)
	Transmit(payload []byte) error
	SetMode(m rfm69.Mode) error
	ReadReg(addr byte) byte
	WriteReg(addr, value byte)
}

// maxBurst bounds the packets pulled off the radio per poll, so that transmissions and
// shutdown are still served when PayloadReady never clears.
const maxBurst = 4

// gateway shuttles packets between the radio and MQTT. All radio access happens in run's
// goroutine, other goroutines hand it packets to transmit through tx and register requests
// through reg.
type gateway struct {
	radio  radio
	group  byte               // JeeLabs group for decoding
	poll   time.Duration      // PayloadReady polling interval
	tx     <-chan *TxPacket   // packets to transmit
	rx     func(*RxPacket)    // called with every packet received
	reg    <-chan *RegRequest // remote register accesses
	regRes func(*RegResult)   // called with the outcome of every register access
	now    func() time.Time

	faulted bool // last receive hit a bus fault
}

// run keeps the radio in RX mode until ctx is cancelled, interleaving polls for received
// packets with transmissions.
func (gw *gateway) run(ctx context.Context) error {
	if err := gw.radio.SetMode(rfm69.RX); err != nil {
		return err
	}
	buf := make([]byte, rfm69.MaxFrameLen)
	tick := time.NewTicker(gw.poll)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return gw.radio.SetMode(rfm69.Standby)
		case pkt := <-gw.tx:
			gw.send(pkt)
		case req := <-gw.reg:
			gw.regRes(gw.register(req))
		case <-tick.C:
			for i := 0; i < maxBurst && gw.radio.PayloadReady(); i++ {
				if errors.Is(gw.receive(buf), rfm69.ErrBusFault) {
					break
				}
			}
		}
	}
}

func (gw *gateway) receive(buf []byte) error {
	n, rssi, err := gw.radio.ReceiveRSSI(buf)
	switch {
	case errors.Is(err, rfm69.ErrBusFault):
		// A dead bus reads as a permanently ready payload, only report the first one.
		if !gw.faulted {
			log.Warnf("RX: %s", err)
		}
		gw.faulted = true
		return err
	case errors.Is(err, rfm69.ErrTimeout):
		log.Warnf("RX: %s", err)
		rssi = 0
	case err != nil:
		log.Warnf("RX dropped: %s", err)
		return err
	}
	if gw.faulted {
		log.Infof("RX: bus recovered")
		gw.faulted = false
	}
	pkt := &RxPacket{Packet: append([]byte(nil), buf[:n]...), At: gw.now()}
	if rssi != 0 {
		pkt.Rssi = rssi.DBm()
	}
	pkt.Info = describe(gw.group, pkt.Packet)
	log.Debugf("RX %ddBm %db: %#x %s", pkt.Rssi, n, pkt.Packet, pkt.Info)
	gw.rx(pkt)
	return nil
}

func (gw *gateway) send(pkt *TxPacket) {
	log.Debugf("TX %db: %#x", len(pkt.Packet), pkt.Packet)
	if err := gw.radio.Transmit(pkt.Packet); err != nil {
		log.Warnf("TX: %s", err)
	}
	if err := gw.radio.SetMode(rfm69.RX); err != nil {
		log.Warnf("back to RX: %s", err)
	}
}

// register carries out a remote register access. Writes to the FIFO and to the operating mode
// are refused, they would desynchronize the gateway's own use of the radio.
func (gw *gateway) register(req *RegRequest) *RegResult {
	res := &RegResult{Addr: req.Addr}
	switch {
	case req.Addr&rfm69.REG_WRITE != 0:
		res.Error = fmt.Sprintf("no register %#02x", req.Addr)
		return res
	case req.Addr == rfm69.REG_FIFO:
		res.Error = "FIFO access not allowed"
		return res
	case req.Write && req.Addr == rfm69.REG_OPMODE:
		res.Error = "operating mode is controlled by the gateway"
		return res
	case req.Write:
		log.Infof("REG write %#02x = %#02x", req.Addr, req.Value)
		gw.radio.WriteReg(req.Addr, req.Value)
	}
	res.Value = gw.radio.ReadReg(req.Addr)
	return res
}

// describe decodes a JeeLabs packet with a type byte. Packets in another group, or that are
// not JeeLabs packets at all, get no description.
func describe(group byte, pkt []byte) string {
	h, payload, err := rfm69.JLDecode(group, pkt)
	if err != nil {
		return ""
	}
	addr := fmt.Sprintf("%d->%d", h.Src, h.Dst)
	if h.Dst == 0 {
		addr = fmt.Sprintf("%d->*", h.Src)
	}
	if len(payload) > 0 && payload[0] == gpsnav.Type {
		return addr + " gpsNav " + gpsnav.String(payload)
	}
	return fmt.Sprintf("%s %db", addr, len(payload))
}
