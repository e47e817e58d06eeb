// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package rfm69

import "fmt"

// PayloadReady reports whether a complete packet is waiting in the FIFO. It reads the flag
// once; waiting (and for how long) is up to the caller.
func (r *Radio) PayloadReady() bool {
	return r.ReadReg(REG_IRQFLAGS2)&IRQ2_PAYLOADREADY != 0
}

// Receive pulls the packet waiting in the FIFO into buf and returns its length. It must only
// be called once PayloadReady returned true.
//
// The length byte that precedes the packet is trusted up to MaxFrameLen; larger values are
// clamped to the FIFO size. A length byte of 0xFF means the bus is not talking to a chip and
// Receive returns ErrBusFault without reading any further. If the packet does not fit into buf,
// len(buf) bytes are copied, the rest of the packet is read off the FIFO and discarded, and
// ErrFrameTooLong is returned.
func (r *Radio) Receive(buf []byte) (int, error) {
	r.bus.Select()
	r.bus.Transfer(REG_FIFO)
	l := int(r.bus.Transfer(0))
	if l == busFault {
		r.bus.Deselect()
		return 0, ErrBusFault
	}
	if l > MaxFrameLen {
		r.log("Rx length %d clamped to %d", l, MaxFrameLen)
		l = MaxFrameLen
	}
	n := 0
	for i := 0; i < l; i++ {
		b := r.bus.Transfer(0)
		if i < len(buf) {
			buf[i] = b
			n++
		}
	}
	r.bus.Deselect()
	if n < l {
		return n, fmt.Errorf("rfm69: %d byte packet, %d byte buffer: %w", l, len(buf),
			ErrFrameTooLong)
	}
	return n, nil
}

// ReceiveRSSI is Receive followed by an RSSI measurement. The RSSI is only sampled when the
// packet was received in full; if the measurement times out the packet is still returned, the
// error is ErrTimeout and the sample may be stale.
func (r *Radio) ReceiveRSSI(buf []byte) (int, RSSI, error) {
	n, err := r.Receive(buf)
	if err != nil {
		return n, 0, err
	}
	rssi, err := r.RSSI()
	return n, rssi, err
}

// Transmit sends one packet. The receiver is turned off (standby) while the packet is pushed
// into the FIFO, then the chip is switched to TX and Transmit waits for PacketSent. The chip is
// left in TX mode, the caller decides where to go next.
func (r *Radio) Transmit(payload []byte) error {
	if len(payload) > MaxFrameLen {
		return fmt.Errorf("rfm69: cannot send %d bytes: %w", len(payload), ErrFrameTooLong)
	}
	if err := r.SetMode(Standby); err != nil {
		return err
	}

	r.bus.Select()
	r.bus.Transfer(REG_FIFO | REG_WRITE)
	r.bus.Transfer(byte(len(payload)))
	for _, b := range payload {
		r.bus.Transfer(b)
	}
	r.bus.Deselect()

	if err := r.SetMode(TX); err != nil {
		return err
	}
	if err := r.waitBit(REG_IRQFLAGS2, IRQ2_PACKETSENT); err != nil {
		return fmt.Errorf("rfm69: waiting for packet sent: %w", err)
	}
	return nil
}
