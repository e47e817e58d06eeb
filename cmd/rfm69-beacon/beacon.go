// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"bufio"
	"errors"
	"io"
	"time"

	"github.com/pixma/devices/gpsnav"
	"github.com/pixma/devices/rfm69"
)

// beacon turns a stream of NMEA sentences into rate limited JeeLabs position broadcasts.
type beacon struct {
	send    func(pkt []byte) error
	group   byte
	node    byte
	every   time.Duration // minimum time between broadcasts, by GPS time
	invalid bool          // also broadcast fixes flagged as not valid
	last    time.Time
}

// handle processes one sentence and reports whether a packet went out.
func (b *beacon) handle(line string) (bool, error) {
	nav, ok, err := gpsnav.ParseRMC(line)
	if err != nil || !ok {
		return false, err
	}
	if !nav.Valid && !b.invalid {
		return false, nil
	}
	if !b.last.IsZero() && nav.Time.Sub(b.last) < b.every && !nav.Time.Before(b.last) {
		return false, nil
	}
	pkt := rfm69.JLEncode(b.group, rfm69.JLHeader{Src: b.node}, gpsnav.Encode(nav))
	if err := b.send(pkt); err != nil {
		return false, txError{err}
	}
	b.last = nav.Time
	log.Debugf("sent %s", nav)
	return true, nil
}

// run reads sentences from r until it fails or hits EOF. Bad sentences are logged and skipped,
// a failing transmission ends the run.
func (b *beacon) run(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 || line[0] != '$' {
			continue
		}
		if _, err := b.handle(line); err != nil {
			if errors.As(err, new(txError)) {
				return err
			}
			log.Debugf("skipping %q: %s", line, err)
		}
	}
	return scanner.Err()
}

// txError marks errors that come from the radio rather than the GPS.
type txError struct{ error }

func (e txError) Unwrap() error { return e.error }
