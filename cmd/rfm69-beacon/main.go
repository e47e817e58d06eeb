// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// rfm69-beacon reads NMEA sentences from a serial GPS receiver and broadcasts the position fixes
// as JeeLabs gpsNav packets on an RFM69 radio.
package main

import (
	"flag"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tarm/serial"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"

	"github.com/pixma/devices/rfm69"
	"github.com/pixma/devices/spibus"
)

var log = logrus.New()

func main() {
	gpsDev := flag.String("gps", "/dev/ttyS0", "serial device of the GPS receiver")
	baud := flag.Int("baud", 9600, "baud rate of the GPS receiver")
	port := flag.String("port", "", "periph SPI port name, empty for the first one")
	csPin := flag.String("cs", "GPIO25", "chip select pin name")
	freq := flag.Int("freq", 868, "center frequency in any unit")
	rate := flag.Int("rate", rfm69.JeeLabsRate, "bit rate in bits per second")
	power := flag.Int("power", 13, "output power in dBm")
	paBoost := flag.Bool("paboost", false, "use PA1 and PA2 (RFM69H modules)")
	group := flag.Int("group", 6, "JeeLabs network group")
	node := flag.Int("node", 62, "node ID to send from")
	every := flag.Duration("every", 10*time.Second, "minimum interval between broadcasts")
	invalid := flag.Bool("invalid", false, "also broadcast fixes the receiver flags as invalid")
	debug := flag.Bool("debug", false, "enable debug output")
	flag.Parse()

	log.Formatter = new(logrus.TextFormatter)
	log.Level = logrus.InfoLevel
	if *debug {
		log.Level = logrus.DebugLevel
	}

	gps, err := serial.OpenPort(&serial.Config{Name: *gpsDev, Baud: *baud})
	if err != nil {
		log.Fatalf("serial.OpenPort(%s): %s", *gpsDev, err)
	}
	defer gps.Close()

	if _, err := host.Init(); err != nil {
		log.Fatalf("host init: %s", err)
	}
	bus, err := spibus.Open(*port, *csPin, 4*physic.MegaHertz)
	if err != nil {
		log.Fatalf("cannot open bus: %s", err)
	}
	defer bus.Close()
	radio, err := rfm69.New(bus, rfm69.Opts{Config: rfm69.JeeLabsConfig(byte(*group)),
		Logger: log.Debugf})
	if err == nil {
		err = radio.SetRate(uint32(*rate))
	}
	if err == nil {
		err = radio.SetFrequency(uint32(*freq))
	}
	if err == nil {
		err = radio.SetPower(*power, *paBoost)
	}
	if err != nil {
		log.Fatalf("cannot initialize radio: %s", err)
	}

	b := &beacon{
		send: func(pkt []byte) error {
			err := radio.Transmit(pkt)
			if err == nil {
				err = radio.SetMode(rfm69.Standby)
			}
			if err == nil {
				err = bus.Err()
			}
			return err
		},
		group:   byte(*group),
		node:    byte(*node),
		every:   *every,
		invalid: *invalid,
	}
	log.Infof("Beacon is ready")
	if err := b.run(gps); err != nil {
		log.Errorf("%s", err)
		os.Exit(1)
	}
}
