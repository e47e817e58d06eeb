// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

// rfm69gw gateways packets between an RFM69 radio and an MQTT broker. Every packet received is
// published as JSON to <prefix>/rx, and packets published to <prefix>/tx are transmitted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/host"

	"github.com/pixma/devices/rfm69"
	"github.com/pixma/devices/spibus"
	"github.com/pixma/devices/thread"
)

var log = logrus.New()

// openRadio brings up the radio described by conf, tuned and ready for the JeeLabs group.
func openRadio(conf RadioConfig) (*rfm69.Radio, *spibus.Port, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	bus, err := spibus.Open(conf.SpiPort, conf.CSPin, physic.Frequency(conf.Speed)*physic.Hertz)
	if err != nil {
		return nil, nil, err
	}
	r, err := rfm69.New(bus, rfm69.Opts{Config: rfm69.JeeLabsConfig(byte(conf.Group)),
		Logger: log.Debugf})
	if err == nil {
		err = r.SetRate(uint32(conf.Rate))
	}
	if err == nil {
		err = r.SetFrequency(uint32(conf.Freq))
	}
	if err == nil {
		err = r.SetPower(conf.Power, conf.PABoost)
	}
	if err == nil {
		err = bus.Err()
	}
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return r, bus, nil
}

// queueJSON subscribes to <prefix>/<suffix> and queues the JSON decoded messages on ch for the
// radio goroutine. Messages are dropped when the queue is full.
func queueJSON[T any](mq *mq, suffix string, ch chan<- *T) error {
	return mq.Subscribe(suffix, func(payload []byte) {
		v := new(T)
		if err := json.Unmarshal(payload, v); err != nil {
			log.Warnf("cannot json decode %s payload: %s", suffix, err)
			return
		}
		select {
		case ch <- v:
		default:
			log.Warnf("%s queue full, dropping message", suffix)
		}
	})
}

func main() {
	confPath := flag.String("config", "", "path to JSON5 config file")
	mqttHost := flag.String("mqtt", "", "MQTT broker host, overrides the config file")
	prefix := flag.String("prefix", "", "MQTT topic prefix, overrides the config file")
	debug := flag.Bool("debug", false, "enable debug output")
	flag.Parse()

	log.Formatter = new(logrus.TextFormatter)
	log.Level = logrus.InfoLevel
	if *debug {
		log.Level = logrus.DebugLevel
	}

	conf, err := loadConfig(*confPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %s\n", err)
		os.Exit(1)
	}
	if *mqttHost != "" {
		conf.Mqtt.Host = *mqttHost
	}
	if *prefix != "" {
		conf.Mqtt.Prefix = *prefix
	}

	mq, err := newMQ(conf.Mqtt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to MQTT broker: %s\n", err)
		os.Exit(2)
	}
	defer mq.Close()

	log.Infof("Opening radio")
	rfm, bus, err := openRadio(conf.Radio)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot initialize radio: %s\n", err)
		os.Exit(2)
	}
	defer bus.Close()

	txChan := make(chan *TxPacket, 10)
	regChan := make(chan *RegRequest, 10)
	err = queueJSON(mq, "tx", txChan)
	if err == nil {
		err = queueJSON(mq, "reg", regChan)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cannot subscribe: %s\n", err)
		os.Exit(2)
	}

	gw := &gateway{
		radio: rfm,
		group: byte(conf.Radio.Group),
		poll:  time.Duration(conf.Radio.PollMs) * time.Millisecond,
		tx:    txChan,
		rx: func(pkt *RxPacket) {
			if err := mq.Publish("rx", pkt); err != nil {
				log.Warnf("cannot publish: %s", err)
			}
		},
		reg: regChan,
		regRes: func(res *RegResult) {
			if err := mq.Publish("reg/result", res); err != nil {
				log.Warnf("cannot publish: %s", err)
			}
		},
		now: time.Now,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		if conf.Radio.Realtime > 0 {
			if err := thread.Realtime(conf.Radio.Realtime); err != nil {
				log.Warnf("cannot switch to realtime scheduling: %s", err)
			}
		}
		done <- gw.run(ctx)
	}()
	log.Infof("Gateway is ready")

	if err := <-done; err != nil {
		log.Errorf("radio: %s", err)
	}
	if err := bus.Err(); err != nil {
		log.Errorf("bus: %s", err)
	}
	log.Infof("Bye...")
}
