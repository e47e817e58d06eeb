// Copyright 2017 by Thorsten von Eicken, see LICENSE file

package spibus

import (
	"fmt"

	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/physic"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
)

// Port is a Conn opened by name, it owns the underlying SPI port.
type Port struct {
	*Conn
	port spi.PortCloser
}

// Open opens the named SPI port (empty for the first one registered) in mode 0 at the given
// speed, and the named gpio pin as chip select. The host drivers must have been loaded with
// host.Init.
func Open(port, csPin string, speed physic.Frequency) (*Port, error) {
	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("spibus: unknown chip select pin %q", csPin)
	}
	p, err := spireg.Open(port)
	if err != nil {
		return nil, fmt.Errorf("spibus: cannot open %q: %v", port, err)
	}
	conn, err := p.Connect(speed, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("spibus: cannot configure %s: %v", p, err)
	}
	c, err := New(conn, cs)
	if err != nil {
		p.Close()
		return nil, err
	}
	return &Port{Conn: c, port: p}, nil
}

// Close releases the SPI port. The chip select is left deasserted.
func (p *Port) Close() error { return p.port.Close() }
