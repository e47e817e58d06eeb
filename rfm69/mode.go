// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package rfm69

import "fmt"

// SetMode switches the chip to mode m and waits until the chip reports ModeReady. The
// other bits of REG_OPMODE (listen mode, sequencer) are preserved. SetMode always performs
// the transition, it never assumes the chip is already in m.
func (r *Radio) SetMode(m Mode) error {
	v := r.ReadReg(REG_OPMODE)
	r.WriteReg(REG_OPMODE, v&^OPMODE_MODE_MASK | m.bits())
	if err := r.waitBit(REG_IRQFLAGS1, IRQ1_MODEREADY); err != nil {
		r.log("timeout switching to %s mode", m)
		return fmt.Errorf("rfm69: switching to %s mode: %w", m, ErrTimeout)
	}
	return nil
}

// Mode returns the operating mode the chip is currently in.
func (r *Radio) Mode() Mode {
	return Mode((r.ReadReg(REG_OPMODE) & OPMODE_MODE_MASK) >> 2)
}

// waitBit polls register addr until one of the bits in mask is set. It gives up after the
// radio's poll budget or once its timeout has elapsed on the radio's clock, whichever comes
// first, and then returns ErrTimeout.
func (r *Radio) waitBit(addr, mask byte) error {
	start := r.clock.Now()
	for n := 0; r.polls < 0 || n < r.polls; n++ {
		if r.ReadReg(addr)&mask != 0 {
			return nil
		}
		if r.timeout > 0 && r.clock.Now().Sub(start) >= r.timeout {
			break
		}
	}
	return ErrTimeout
}
