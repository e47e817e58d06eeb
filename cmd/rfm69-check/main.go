// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// rfm69-check brings up an RFM69 radio and runs a quick health check on it: register self test,
// chip version, a trip through every operating mode, an RSSI sample and a temperature reading.
// It exits non-zero if anything fails.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"

	"github.com/pixma/devices"
	"github.com/pixma/devices/rfm69"
	"github.com/pixma/devices/spibus"
)

var log = logrus.New()

// bus is a devices.Bus that remembers transport errors.
type bus interface {
	devices.Bus
	Err() error
	Close() error
}

func openBus(useEmbd bool, port, csPin string, speedHz int) (bus, error) {
	if useEmbd {
		if err := embd.InitGPIO(); err != nil {
			return nil, err
		}
		if err := embd.InitSPI(); err != nil {
			return nil, err
		}
		return devices.NewEmbdBus(speedHz, csPin)
	}
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	return spibus.Open(port, csPin, physic.Frequency(speedHz)*physic.Hertz)
}

func check(r *rfm69.Radio, cal int) error {
	switch v := r.Version(); v {
	case 0x23:
		log.Infof("found sx1231: OK!")
	case 0x24:
		log.Infof("found sx1231h: OK!")
	default:
		return fmt.Errorf("unexpected chip version %#x", v)
	}

	for _, m := range []rfm69.Mode{rfm69.Sleep, rfm69.Standby, rfm69.FS, rfm69.RX, rfm69.Standby} {
		if err := r.SetMode(m); err != nil {
			return err
		}
		if got := r.Mode(); got != m {
			return fmt.Errorf("mode is %s after switching to %s", got, m)
		}
		log.Debugf("mode %s: OK", m)
	}
	log.Infof("mode switching: OK")

	if err := r.SetMode(rfm69.RX); err != nil {
		return err
	}
	rssi, err := r.RSSI()
	if err != nil {
		return err
	}
	log.Infof("rssi: %ddBm", rssi.DBm())

	temp, err := r.Temperature()
	if err != nil {
		return err
	}
	if m := r.Mode(); m != rfm69.RX {
		return fmt.Errorf("temperature reading left the radio in %s mode", m)
	}
	log.Infof("temperature: %s (raw %d)", temp.Celsius(cal), temp)
	return r.SetMode(rfm69.Standby)
}

func main() {
	port := flag.String("port", "", "periph SPI port name, empty for the first one")
	csPin := flag.String("cs", "GPIO25", "chip select pin name")
	speed := flag.Int("speed", 4000000, "SPI clock in Hz")
	useEmbd := flag.Bool("embd", false, "use embd instead of periph to access the hardware")
	cal := flag.Int("cal", 0, "temperature calibration offset in degrees")
	freq := flag.Int("freq", 0, "center frequency in any unit, 0 to leave the default")
	dump := flag.Bool("dump", false, "dump all registers")
	debug := flag.Bool("debug", false, "enable debug output")
	flag.Parse()

	log.Formatter = new(logrus.TextFormatter)
	log.Level = logrus.InfoLevel
	if *debug {
		log.Level = logrus.DebugLevel
	}

	b, err := openBus(*useEmbd, *port, *csPin, *speed)
	if err != nil {
		log.Fatalf("cannot open bus: %s", err)
	}
	defer b.Close()

	log.Infof("checking rfm69...")
	r, err := rfm69.New(b, rfm69.Opts{Logger: log.Debugf})
	if errors.Is(err, rfm69.ErrSelfTest) {
		log.Errorf("no radio responding: %s", err)
		os.Exit(1)
	}
	if err != nil {
		log.Errorf("initialization failed: %s", err)
		os.Exit(1)
	}
	log.Infof("self test: OK")
	if *freq != 0 {
		if err := r.SetFrequency(uint32(*freq)); err != nil {
			log.Errorf("cannot set frequency: %s", err)
			os.Exit(1)
		}
	}
	if *dump {
		r.SetLogger(log.Infof)
		r.DumpRegs()
		r.SetLogger(log.Debugf)
	}

	err = check(r, *cal)
	if berr := b.Err(); berr != nil {
		log.Errorf("bus error: %s", berr)
		os.Exit(2)
	}
	if err != nil {
		log.Errorf("check failed: %s", err)
		os.Exit(1)
	}
	log.Infof("all checks passed")
}
