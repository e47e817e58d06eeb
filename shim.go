// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package devices

// stuff in here lets the radio driver run on top of either embd or periph...

import (
	"fmt"
	"sync"

	"github.com/kidoman/embd"
)

// Bus is the byte-level transaction primitive a register-based SPI chip needs: assert the chip
// select, exchange bytes one at a time, deassert the chip select. The contract has no error path;
// implementations record transport errors and expose them through their own Err method.
type Bus interface {
	Select()
	Deselect()
	Transfer(out byte) byte
}

//===== Bus shim for embd

// EmbdBus is a Bus on an embd SPI bus with the chip select driven from a separate digital pin.
// The SPI controller's own chip select must not be wired to the radio.
type EmbdBus struct {
	spi embd.SPIBus
	cs  embd.DigitalPin
	mu  sync.Mutex
	err error
}

// NewEmbdBus opens SPI channel 0 in mode 0 at the given speed and the named pin as chip select.
// embd.InitSPI and embd.InitGPIO must have been called.
func NewEmbdBus(speedHz int, csPin string) (*EmbdBus, error) {
	cs, err := embd.NewDigitalPin(csPin)
	if err != nil {
		return nil, fmt.Errorf("embd: cannot open chip select pin %s: %s", csPin, err)
	}
	if err := cs.SetDirection(embd.Out); err != nil {
		return nil, fmt.Errorf("embd: cannot drive chip select pin %s: %s", csPin, err)
	}
	if err := cs.Write(embd.High); err != nil {
		return nil, fmt.Errorf("embd: cannot deassert chip select: %s", err)
	}
	return &EmbdBus{spi: embd.NewSPIBus(embd.SPIMode0, 0, speedHz, 8, 0), cs: cs}, nil
}

// Select drives the chip select low.
func (b *EmbdBus) Select() { b.record(b.cs.Write(embd.Low)) }

// Deselect drives the chip select high.
func (b *EmbdBus) Deselect() { b.record(b.cs.Write(embd.High)) }

// Transfer shifts one byte out and returns the byte shifted in. A failed transfer returns 0xFF,
// which is what a floating MISO line reads as.
func (b *EmbdBus) Transfer(out byte) byte {
	in, err := b.spi.TransferAndReceiveByte(out)
	if err != nil {
		b.record(err)
		return 0xFF
	}
	return in
}

// Err returns the first transport error seen, if any.
func (b *EmbdBus) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Close releases the SPI bus and the chip select pin.
func (b *EmbdBus) Close() error {
	err := b.spi.Close()
	if e := b.cs.Close(); err == nil {
		err = e
	}
	return err
}

func (b *EmbdBus) record(err error) {
	if err == nil {
		return
	}
	b.mu.Lock()
	if b.err == nil {
		b.err = fmt.Errorf("embd: %s", err)
	}
	b.mu.Unlock()
}
