// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package rfm69

import "fmt"

// SetFrequency changes the center frequency at which the radio transmits and receives. The
// frequency can be specified at any scale (hz, khz, mhz). The frequency value is not checked
// and invalid values will simply cause the radio not to work particularly well. The chip is
// put in standby while the frequency registers change and returned to its previous mode.
func (r *Radio) SetFrequency(freq uint32) error {
	// accept any frequency scale as input, including KHz and MHz
	// multiply by 10 until freq >= 100 MHz
	for freq > 0 && freq < 100000000 {
		freq = freq * 10
	}
	r.log("SetFrequency: %dHz", freq)

	mode := r.Mode()
	if err := r.SetMode(Standby); err != nil {
		return err
	}
	// Frequency steps are in units of (32,000,000 >> 19) = 61.03515625 Hz
	// use multiples of 64 to avoid multi-precision arithmetic, i.e. 3906.25 Hz
	// due to this, the lower 6 bits of the calculated factor will always be 0
	// 868.0 MHz = 0xD90000, 868.3 MHz = 0xD91300, 915.0 MHz = 0xE4C000
	frf := (freq << 2) / (32000000 >> 11)
	r.WriteReg(REG_FRFMSB, byte(frf>>10))
	r.WriteReg(REG_FRFMID, byte(frf>>2))
	r.WriteReg(REG_FRFLSB, byte(frf<<6))
	return r.SetMode(mode)
}

// SetPower configures the output power in dBm. With paBoost the PA1 and PA2 amplifiers of the
// RFM69H modules are used (up to 17dBm), otherwise PA0 (up to 13dBm). Out of range values are
// clamped. The chip's mode is preserved.
func (r *Radio) SetPower(dbm int, paBoost bool) error {
	mode := r.Mode()
	if err := r.SetMode(Standby); err != nil {
		return err
	}
	if paBoost {
		switch {
		case dbm < -2:
			dbm = -2
		case dbm > 17:
			dbm = 17
		}
		if dbm <= 13 {
			r.WriteReg(REG_PALEVEL, byte(0x40+18+dbm)) // PA1
		} else {
			r.WriteReg(REG_PALEVEL, byte(0x60+14+dbm)) // PA1+PA2
		}
	} else {
		switch {
		case dbm < -18:
			dbm = -18
		case dbm > 13:
			dbm = 13
		}
		r.WriteReg(REG_PALEVEL, byte(0x80+18+dbm)) // PA0
	}
	// Normal (not high power) PA test settings, for all output levels up to 17dBm.
	r.WriteReg(REG_TESTPA1, 0x55)
	r.WriteReg(REG_TESTPA2, 0x70)
	r.log("SetPower %ddBm", dbm)
	return r.SetMode(mode)
}

// Rate holds the modem settings that go with a bit rate.
//
// The signal bandwidth (20dB roll-off) can be approximated by fdev + bit-rate. Since RxBw
// is specified as the single-sided bandwidth it needs to be at least Fdev + bitrate/2. With AFC
// the AFC bandwidth also has to cover the crystal offset between transmitter and receiver.
type Rate struct {
	Fdev    int  // TX frequency deviation in Hz
	Shaping byte // 0:none, 1:gaussian BT=1, 2:gaussian BT=0.5, 3:gaussian BT=0.3
	RxBw    byte // value for REG_RXBW
	AfcBw   byte // value for REG_AFCBW
}

// JeeLabsRate is the bit rate used by the JeeLabs rfm69 nodes.
const JeeLabsRate = 49230

// Rates is the table of bit rates SetRate knows about, keyed by bits per second. Clients may add
// entries before calling SetRate.
var Rates = map[uint32]Rate{
	49230: {45000, 0, 0x4A, 0x42},  // JeeLabs rfm69 (RxBw=100, AfcBw=125)
	49231: {180000, 0, 0x49, 0x49}, // JeeLabs with rf12b compatibility
	49232: {45000, 0, 0x52, 0x4A},  // JeeLabs rfm69 (RxBw=83, AfcBw=100)
	49233: {51660, 0, 0x52, 0x4A},  // JeeLabs rfm69 (RxBw=83, AfcBw=100)
	50000: {90000, 0, 0x42, 0x42},  // round number
}

// SetRate programs the bit rate, frequency deviation, pulse shaping and receiver bandwidths for
// one of the Rates entries. An unknown rate is an error and leaves the chip untouched. The chip
// goes through standby (and FS, if AFC control needs resetting) and returns to its previous
// mode.
func (r *Radio) SetRate(rate uint32) error {
	params, found := Rates[rate]
	if !found {
		return fmt.Errorf("rfm69: no settings for %dbps", rate)
	}
	bw := func(v byte) int {
		return 32000000 / (int(16+(v&0x18>>1)) * (1 << ((v & 0x7) + 2)))
	}
	r.log("SetRate %dbps, Fdev:%dHz, RxBw:%dHz(%#x), AfcBw:%dHz(%#x)", rate,
		params.Fdev, bw(params.RxBw), params.RxBw, bw(params.AfcBw), params.AfcBw)

	mode := r.Mode()
	if err := r.SetMode(Standby); err != nil {
		return err
	}
	// 32Mhz oscillator
	rateVal := (32000000 + rate/2) / rate
	r.WriteReg(REG_BITRATEMSB, byte(rateVal>>8))
	r.WriteReg(REG_BITRATELSB, byte(rateVal))
	// Fstep = 32Mhz / 2^19 = 61.03515625 Hz
	fStep := 32000000.0 / 524288
	fdevVal := uint32((float64(params.Fdev) + fStep/2) / fStep)
	r.WriteReg(REG_FDEVMSB, byte(fdevVal>>8))
	r.WriteReg(REG_FDEVLSB, byte(fdevVal))
	r.WriteReg(REG_DATAMODUL, params.Shaping&0x3)
	r.WriteReg(REG_RXBW, params.RxBw)
	r.WriteReg(REG_AFCBW, params.AfcBw)
	// AFC offset of 10% of Fdev
	r.WriteReg(REG_TESTAFC, byte(params.Fdev/10/488))
	if r.ReadReg(REG_AFCCTRL) != 0x00 {
		// REG_AFCCTRL only takes writes in FS mode
		if err := r.SetMode(FS); err != nil {
			return err
		}
		r.WriteReg(REG_AFCCTRL, 0x00)
	}
	return r.SetMode(mode)
}
