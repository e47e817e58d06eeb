// Copyright 2017 by Thorsten von Eicken, see LICENSE file

package spibus

import (
	"fmt"
	"sync"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/spi"
)

// Conn adapts a periph SPI connection to the byte-at-a-time devices.Bus contract.
//
// A register transaction on the radio spans several bytes under one chip select, but
// spi.Conn.Tx frames every call with the controller's own chip select. For this reason the
// radio's NSS input is driven from a separate gpio pin that Conn holds low for the whole
// transaction, and the controller chip select is left unconnected (or routed elsewhere).
//
// The mutex is held from Select to Deselect so that nothing else using the same Conn can
// interleave bytes into an open transaction.
type Conn struct {
	mu    sync.Mutex
	conn  spi.Conn    // the underlying SPI bus
	csPin gpio.PinOut // chip select, active low
	err   error       // first transport error
}

// New returns a Conn using c for data and csPin as chip select. The chip select is
// deasserted before New returns.
func New(c spi.Conn, csPin gpio.PinOut) (*Conn, error) {
	if err := csPin.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("spibus: cannot drive chip select %s: %v", csPin, err)
	}
	return &Conn{conn: c, csPin: csPin}, nil
}

// Select locks the bus and asserts the chip select.
func (c *Conn) Select() {
	c.mu.Lock()
	c.record(c.csPin.Out(gpio.Low))
}

// Deselect deasserts the chip select and unlocks the bus.
func (c *Conn) Deselect() {
	c.record(c.csPin.Out(gpio.High))
	c.mu.Unlock()
}

// Transfer performs a one byte full-duplex exchange. Transport errors are recorded and
// reported as 0xFF, the value an absent chip produces.
func (c *Conn) Transfer(out byte) byte {
	var r [1]byte
	if err := c.conn.Tx([]byte{out}, r[:]); err != nil {
		c.record(err)
		return 0xFF
	}
	return r[0]
}

// Err returns the first transport error encountered. It must not be called between Select
// and Deselect.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Conn) record(err error) {
	if err != nil && c.err == nil {
		c.err = fmt.Errorf("spibus: %v", err)
	}
}
