// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package rfm69

import (
	"testing"
	"time"
)

// fakeChip simulates enough of an SX1231 on the other end of a devices.Bus to exercise the
// driver: a register file with address auto-increment, separate rx/tx FIFOs, and the status
// flags that the driver waits on. Each flag can be made to stick low.
type fakeChip struct {
	t        *testing.T
	regs     [0x80]byte
	rxFifo   []byte // bytes served by FIFO reads, in order
	fifoRead int    // number of FIFO bytes read
	txFifo   []byte // bytes written to the FIFO

	stuckModeReady  bool
	stuckRssiDone   bool
	stuckPacketSent bool
	corrupt         map[byte]byte // xor applied to register reads, by address

	selected bool
	inTxn    bool // address byte seen in current transaction
	write    bool
	addr     byte
	selects  int          // completed transactions
	reads    map[byte]int // register reads, by address
	modes    []Mode       // modes written to REG_OPMODE, in order
}

func newFakeChip(t *testing.T) *fakeChip {
	c := &fakeChip{t: t, reads: map[byte]int{}}
	c.regs[REG_VERSION] = 0x24
	c.regs[REG_OPMODE] = Standby.bits()
	c.regs[REG_IRQFLAGS1] = IRQ1_MODEREADY
	c.regs[REG_AESKEY1] = 0x17
	return c
}

func (c *fakeChip) Select() {
	if c.selected {
		c.t.Fatalf("chip select asserted twice")
	}
	c.selected, c.inTxn = true, false
}

func (c *fakeChip) Deselect() {
	if !c.selected {
		c.t.Fatalf("chip select deasserted twice")
	}
	c.selected = false
	c.selects++
}

func (c *fakeChip) Transfer(out byte) byte {
	if !c.selected {
		c.t.Fatalf("transfer of %#02x without chip select", out)
	}
	if !c.inTxn {
		c.inTxn = true
		c.write = out&REG_WRITE != 0
		c.addr = out &^ REG_WRITE
		return 0
	}
	var in byte
	if c.write {
		c.store(c.addr, out)
	} else {
		in = c.load(c.addr)
	}
	if c.addr != REG_FIFO {
		c.addr = (c.addr + 1) & 0x7f
	}
	return in
}

func (c *fakeChip) load(addr byte) byte {
	c.reads[addr]++
	if addr == REG_FIFO {
		if c.fifoRead >= len(c.rxFifo) {
			return 0
		}
		b := c.rxFifo[c.fifoRead]
		c.fifoRead++
		return b
	}
	return c.regs[addr] ^ c.corrupt[addr]
}

func (c *fakeChip) store(addr, v byte) {
	switch addr {
	case REG_FIFO:
		c.txFifo = append(c.txFifo, v)
	case REG_OPMODE:
		c.regs[addr] = v
		m := Mode((v & OPMODE_MODE_MASK) >> 2)
		c.modes = append(c.modes, m)
		c.regs[REG_IRQFLAGS1] &^= IRQ1_MODEREADY
		if !c.stuckModeReady {
			c.regs[REG_IRQFLAGS1] |= IRQ1_MODEREADY
		}
		c.regs[REG_IRQFLAGS2] &^= IRQ2_PACKETSENT
		if m == TX && !c.stuckPacketSent {
			c.regs[REG_IRQFLAGS2] |= IRQ2_PACKETSENT
		}
	case REG_RSSICONFIG:
		c.regs[addr] &^= RSSI_DONE
		if v&RSSI_START != 0 && !c.stuckRssiDone {
			c.regs[addr] |= RSSI_DONE
		}
	default:
		c.regs[addr] = v
	}
}

// mode returns the mode the chip is in.
func (c *fakeChip) mode() Mode { return Mode((c.regs[REG_OPMODE] & OPMODE_MODE_MASK) >> 2) }

// stepClock advances by a fixed step every time it is consulted.
type stepClock struct {
	now   time.Time
	step  time.Duration
	slept time.Duration
}

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func (c *stepClock) Sleep(d time.Duration) {
	c.slept += d
	c.now = c.now.Add(d)
}
