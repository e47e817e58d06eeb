// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package rfm69

import (
	"errors"
	"fmt"

	"periph.io/x/periph/conn/physic"
)

// RSSI is a raw received signal strength sample.
type RSSI byte

// DBm returns the signal strength in dBm.
func (s RSSI) DBm() int { return -int(s) / 2 }

// RSSI triggers a signal strength measurement and returns the result. The value register is
// read even if the chip did not signal completion in time; in that case ErrTimeout is returned
// along with the (possibly stale) sample.
func (r *Radio) RSSI() (RSSI, error) {
	r.WriteReg(REG_RSSICONFIG, RSSI_START)
	err := r.waitBit(REG_RSSICONFIG, RSSI_DONE)
	v := RSSI(r.ReadReg(REG_RSSIVALUE))
	if err != nil {
		return v, fmt.Errorf("rfm69: rssi measurement: %w", err)
	}
	return v, nil
}

// Temperature is a raw temperature sample, as read from REG_TEMP2. Higher values mean lower
// temperatures, roughly one count per degree.
type Temperature byte

// Celsius converts the sample using a per-chip calibration offset in degrees. The uncalibrated
// conversion is typically off by a few degrees.
func (t Temperature) Celsius(cal int) physic.Temperature {
	c := 255 - int(t) - 90 + cal
	return physic.ZeroCelsius + physic.Temperature(c)*physic.Celsius
}

// Temperature measures the chip's die temperature. The measurement requires standby mode, so
// the current mode is saved, the chip is put in standby for the conversion, and the saved mode
// (whatever it was, including TX and RX) is restored afterwards.
//
// The conversion time is a fixed delay rather than a poll of the TempMeasRunning flag.
func (r *Radio) Temperature() (Temperature, error) {
	saved := r.Mode()
	errStandby := r.SetMode(Standby)
	r.WriteReg(REG_TEMP1, TEMP1_MEAS_START)
	r.clock.Sleep(r.tempDelay)
	t := Temperature(r.ReadReg(REG_TEMP2))
	errRestore := r.SetMode(saved)
	return t, errors.Join(errStandby, errRestore)
}

// SelfTest writes two test patterns into the (otherwise unused) first AES key register and
// checks that they read back unchanged. The original register value is restored in all cases.
func (r *Radio) SelfTest() error {
	orig := r.ReadReg(REG_AESKEY1)
	defer r.WriteReg(REG_AESKEY1, orig)
	for _, pattern := range []byte{0x55, 0xAA} {
		r.WriteReg(REG_AESKEY1, pattern)
		if v := r.ReadReg(REG_AESKEY1); v != pattern {
			return fmt.Errorf("%w: wrote %#02x, read %#02x", ErrSelfTest, pattern, v)
		}
	}
	return nil
}
