// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// The rfm69 package drives a HopeRF RFM69 radio (Semtech SX1231 or SX1231H) through a
// byte-oriented SPI bus.
//
// The driver is deliberately thin: it offers register access, operating mode control, variable
// length packet transmit and receive through the 66 byte FIFO, plus RSSI and temperature
// sampling. Modulation, bit rate, sync words and the like are plain register settings supplied
// through a configuration table (see DefaultConfig). There is no interrupt handling, no
// retransmission and no acknowledgment protocol; the caller polls PayloadReady and decides how
// long it is willing to wait.
//
// Every operation that waits for the chip polls a status bit and gives up after a budget that is
// both a poll count and a deadline measured against an injectable clock, whichever runs out
// first. Timeouts are always reported: Transmit, RSSI and Temperature return ErrTimeout
// alongside whatever value was read so the caller can decide whether a late sample is usable.
//
// A Radio is the single owner of the chip and is not concurrency safe. The bus contract has no
// notion of sharing, so all calls must come from one goroutine (or be serialized by the caller).
package rfm69

import (
	"errors"
	"fmt"
	"time"

	"github.com/pixma/devices"
)

// MaxFrameLen is the largest frame length, the size of the chip's FIFO.
const MaxFrameLen = 66

// busFault is what the length byte reads as when nothing is driving MISO.
const busFault = 0xFF

// Defaults for Opts fields left at their zero value.
const (
	DefaultPolls     = 50000
	DefaultTimeout   = 100 * time.Millisecond
	DefaultTempDelay = 20 * time.Millisecond
)

var (
	// ErrTimeout indicates that a status bit did not assert within the wait budget.
	ErrTimeout = errors.New("rfm69: timeout")
	// ErrBusFault indicates that a frame length byte read as 0xFF: the bus is out of sync or
	// there is no chip.
	ErrBusFault = errors.New("rfm69: bus fault")
	// ErrFrameTooLong indicates a frame that does not fit the buffer or the FIFO.
	ErrFrameTooLong = errors.New("rfm69: frame too long")
	// ErrSelfTest indicates that a register did not read back what was written to it.
	ErrSelfTest = errors.New("rfm69: register self test failed")
)

// Mode is one of the chip's operating modes.
type Mode byte

const (
	Sleep Mode = iota
	Standby
	FS // frequency synthesizer
	TX
	RX
)

var modeNames = []string{"sleep", "standby", "fs", "tx", "rx"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", byte(m))
}

// bits returns the REG_OPMODE bit pattern for m.
func (m Mode) bits() byte { return (byte(m) << 2) & OPMODE_MODE_MASK }

// LogPrintf is a function used by the driver to print logging info.
type LogPrintf func(format string, v ...interface{})

// Clock is the time source used for wait deadlines and the temperature conversion delay.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// Opts contains options used when initializing a Radio.
type Opts struct {
	Polls     int           // max status polls per wait, 0: DefaultPolls, <0: unlimited
	Timeout   time.Duration // deadline per wait, 0: DefaultTimeout, <0: none (not with Polls<0)
	TempDelay time.Duration // temperature conversion time, 0: DefaultTempDelay
	Clock     Clock         // time source, nil: real time
	Config    []RegValue    // register settings applied by New, nil: DefaultConfig
	Logger    LogPrintf     // function to use for logging, nil: silent
}

// noCopy makes go vet's copylocks check complain about copies of a Radio.
type noCopy struct{}

func (*noCopy) Lock() {}
func (*noCopy) Unlock() {}

// Radio represents an RFM69 radio on a bus.
type Radio struct {
	noCopy    noCopy
	bus       devices.Bus
	polls     int
	timeout   time.Duration
	tempDelay time.Duration
	clock     Clock
	log       LogPrintf
}

// New initializes an RFM69 radio on the given bus and leaves it in standby mode.
//
// New first checks that registers can be written and read back, retrying a few times to let
// a freshly powered chip settle, then applies opts.Config.
func New(bus devices.Bus, opts Opts) (*Radio, error) {
	r := &Radio{
		bus:       bus,
		polls:     opts.Polls,
		timeout:   opts.Timeout,
		tempDelay: opts.TempDelay,
		clock:     opts.Clock,
		log:       func(format string, v ...interface{}) {},
	}
	if r.polls == 0 {
		r.polls = DefaultPolls
	}
	if r.timeout == 0 {
		r.timeout = DefaultTimeout
	}
	if r.tempDelay == 0 {
		r.tempDelay = DefaultTempDelay
	}
	if r.clock == nil {
		r.clock = realClock{}
	}
	if r.polls < 0 && r.timeout < 0 {
		return nil, errors.New("rfm69: waits need a poll limit or a timeout")
	}
	if opts.Logger != nil {
		r.log = func(format string, v ...interface{}) {
			opts.Logger("rfm69: "+format, v...)
		}
	}

	// Try to synchronize communication with the chip.
	var err error
	for n := 10; n > 0; n-- {
		if err = r.SelfTest(); err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	r.log("SX1231 version %#x", r.Version())

	config := opts.Config
	if config == nil {
		config = DefaultConfig
	}
	r.Configure(config)
	if err := r.SetMode(Standby); err != nil {
		return nil, err
	}
	return r, nil
}

// SetLogger sets a logging function, nil may be used to disable logging.
func (r *Radio) SetLogger(l LogPrintf) {
	if l != nil {
		r.log = l
	} else {
		r.log = func(format string, v ...interface{}) {}
	}
}

// Version returns the chip's silicon revision, 0x23 for the SX1231 and 0x24 for the SX1231H.
func (r *Radio) Version() byte { return r.ReadReg(REG_VERSION) }
