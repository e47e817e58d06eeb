// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package rfm69

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/physic"
)

var allModes = []Mode{Sleep, Standby, FS, TX, RX}

// newRadio brings up a Radio on a fresh simulated chip and clears the chip's bookkeeping so
// tests only see their own traffic.
func newRadio(t *testing.T, opts Opts) (*Radio, *fakeChip) {
	chip := newFakeChip(t)
	if opts.Logger == nil {
		opts.Logger = t.Logf
	}
	r, err := New(chip, opts)
	require.NoError(t, err)
	chip.reads = map[byte]int{}
	chip.modes = nil
	chip.selects = 0
	return r, chip
}

func TestNew(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	require.Equal(t, Standby, chip.mode())
	require.Equal(t, byte(MaxFrameLen), chip.regs[REG_PAYLOADLEN])
	require.Equal(t, byte(0x90), chip.regs[REG_PKTCONFIG1])
	require.Equal(t, byte(0x17), chip.regs[REG_AESKEY1], "scratch register restored")
	require.Equal(t, byte(0x24), r.Version())
}

func TestNewNoChip(t *testing.T) {
	chip := newFakeChip(t)
	chip.corrupt = map[byte]byte{REG_AESKEY1: 0x01}
	_, err := New(chip, Opts{Logger: t.Logf})
	require.True(t, errors.Is(err, ErrSelfTest), "got %v", err)
}

func TestRegisterRoundTrip(t *testing.T) {
	r, chip := newRadio(t, Opts{})

	r.WriteReg(0x3E, 0x55)
	require.Equal(t, byte(0x55), r.ReadReg(0x3E))

	for v := 0; v < 256; v++ {
		r.WriteReg(REG_AESKEY1, byte(v))
		require.Equal(t, byte(v), r.ReadReg(REG_AESKEY1))
	}
	// Every access is one chip select transaction.
	require.Equal(t, 2+2*256, chip.selects)

	// The write flag is never part of the address.
	r.WriteReg(REG_AESKEY1|REG_WRITE, 0x33)
	require.Equal(t, byte(0x33), r.ReadReg(REG_AESKEY1|REG_WRITE))
}

func TestConfigure(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	r.Configure([]RegValue{
		{REG_SYNCVALUE1, 0x12},
		{REG_SYNCVALUE2, 0x34},
		{ConfigEnd, 0},
		{REG_PAYLOADLEN, 0x10},
	})
	require.Equal(t, byte(0x12), chip.regs[REG_SYNCVALUE1])
	require.Equal(t, byte(0x34), chip.regs[REG_SYNCVALUE2])
	require.Equal(t, byte(MaxFrameLen), chip.regs[REG_PAYLOADLEN], "write past end marker")
	require.Equal(t, 2, chip.selects)
}

func TestSetMode(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	chip.regs[REG_OPMODE] |= 0x80 // sequencer off, must survive mode changes
	for _, m := range allModes {
		require.NoError(t, r.SetMode(m))
		require.Equal(t, m, chip.mode())
		require.Equal(t, m, r.Mode())
		require.Equal(t, byte(0x80), chip.regs[REG_OPMODE]&^OPMODE_MODE_MASK)
	}
	require.Equal(t, allModes, chip.modes)

	// Setting the current mode again still goes through the chip.
	require.NoError(t, r.SetMode(RX))
	require.Len(t, chip.modes, len(allModes)+1)
}

func TestSetModeTimeoutPolls(t *testing.T) {
	r, chip := newRadio(t, Opts{Polls: 7, Timeout: -1})
	chip.stuckModeReady = true

	err := r.SetMode(Standby)
	require.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	require.Equal(t, 7, chip.reads[REG_IRQFLAGS1])
}

func TestSetModeTimeoutDeadline(t *testing.T) {
	clk := &stepClock{step: time.Millisecond}
	r, chip := newRadio(t, Opts{Polls: -1, Timeout: 10 * time.Millisecond, Clock: clk})
	chip.stuckModeReady = true

	err := r.SetMode(RX)
	require.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	require.Equal(t, 10, chip.reads[REG_IRQFLAGS1])
}

func TestSetModeReadyFirstPoll(t *testing.T) {
	r, chip := newRadio(t, Opts{Polls: 3, Timeout: -1})
	for i := 0; i < 5; i++ {
		require.NoError(t, r.SetMode(allModes[i%len(allModes)]))
	}
	require.Equal(t, 5, chip.reads[REG_IRQFLAGS1], "ready flag seen on first poll")
}

func TestNewUnboundedWait(t *testing.T) {
	_, err := New(newFakeChip(t), Opts{Polls: -1, Timeout: -1})
	require.Error(t, err)
	_, err = New(newFakeChip(t), Opts{Polls: -1})
	require.NoError(t, err, "default timeout still bounds the wait")
}

func TestPayloadReady(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	require.False(t, r.PayloadReady())
	chip.regs[REG_IRQFLAGS2] = IRQ2_PAYLOADREADY | IRQ2_CRCOK
	require.True(t, r.PayloadReady())
}

func TestReceive(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	chip.rxFifo = []byte{5, 1, 2, 3, 4, 5, 99}

	buf := make([]byte, MaxFrameLen)
	n, err := r.Receive(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, []byte{1, 2, 3, 4, 5}, buf[:n])
	require.Equal(t, 6, chip.fifoRead)
	require.Equal(t, 1, chip.selects)
	require.False(t, chip.selected)
}

func TestReceiveEmptyFrame(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	chip.rxFifo = []byte{0}

	n, err := r.Receive(make([]byte, 4))
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, 1, chip.fifoRead)
}

func TestReceiveBusFault(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	chip.rxFifo = []byte{0xFF, 1, 2, 3}

	buf := make([]byte, MaxFrameLen)
	n, err := r.Receive(buf)
	require.True(t, errors.Is(err, ErrBusFault), "got %v", err)
	require.Equal(t, 0, n)
	require.Equal(t, 1, chip.fifoRead, "no payload bytes read")
	require.Equal(t, make([]byte, MaxFrameLen), buf)
	require.False(t, chip.selected)
}

func TestReceiveTooLong(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	frame := make([]byte, 40)
	for i := range frame {
		frame[i] = byte(100 + i)
	}
	chip.rxFifo = append([]byte{40}, frame...)

	buf := make([]byte, 12)
	n, err := r.Receive(buf[:10])
	require.True(t, errors.Is(err, ErrFrameTooLong), "got %v", err)
	require.Equal(t, 10, n)
	require.Equal(t, frame[:10], buf[:10])
	require.Equal(t, []byte{0, 0}, buf[10:], "nothing written past the buffer")
	require.Equal(t, 41, chip.fifoRead, "rest of the frame drained")
	require.False(t, chip.selected)
}

func TestReceiveClamp(t *testing.T) {
	for _, l := range []byte{67, 100, 0xFE} {
		r, chip := newRadio(t, Opts{})
		chip.rxFifo = append([]byte{l}, bytes.Repeat([]byte{0xA5}, 200)...)

		buf := make([]byte, 100)
		n, err := r.Receive(buf)
		require.NoError(t, err)
		require.Equal(t, MaxFrameLen, n, "length %d", l)
		require.Equal(t, 1+MaxFrameLen, chip.fifoRead)
		require.Equal(t, byte(0), buf[MaxFrameLen])
	}
}

func TestReceiveRSSI(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	chip.rxFifo = []byte{2, 0xCA, 0xFE}
	chip.regs[REG_RSSIVALUE] = 0x50

	buf := make([]byte, 8)
	n, rssi, err := r.ReceiveRSSI(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, RSSI(0x50), rssi)
	require.Equal(t, -40, rssi.DBm())

	// No RSSI sample is taken for a bad frame.
	chip.rxFifo, chip.fifoRead = []byte{0xFF}, 0
	chip.reads = map[byte]int{}
	_, _, err = r.ReceiveRSSI(buf)
	require.True(t, errors.Is(err, ErrBusFault))
	require.Zero(t, chip.reads[REG_RSSIVALUE])
}

func TestTransmit(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	require.NoError(t, r.SetMode(RX))
	chip.modes = nil

	payload := []byte("hello radio")
	require.NoError(t, r.Transmit(payload))
	require.Equal(t, append([]byte{byte(len(payload))}, payload...), chip.txFifo)
	require.Equal(t, []Mode{Standby, TX}, chip.modes)
	require.Equal(t, TX, chip.mode())

	chip.txFifo = nil
	require.NoError(t, r.Transmit(nil))
	require.Equal(t, []byte{0}, chip.txFifo)
}

func TestTransmitTooLong(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	err := r.Transmit(make([]byte, MaxFrameLen+1))
	require.True(t, errors.Is(err, ErrFrameTooLong), "got %v", err)
	require.Empty(t, chip.txFifo)
	require.Empty(t, chip.modes)

	require.NoError(t, r.Transmit(make([]byte, MaxFrameLen)))
	require.Len(t, chip.txFifo, 1+MaxFrameLen)
}

func TestTransmitTimeout(t *testing.T) {
	r, chip := newRadio(t, Opts{Polls: 5, Timeout: -1})
	chip.stuckPacketSent = true

	err := r.Transmit([]byte{1, 2, 3})
	require.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	require.Equal(t, 5, chip.reads[REG_IRQFLAGS2])
}

func TestRSSI(t *testing.T) {
	r, chip := newRadio(t, Opts{Polls: 4, Timeout: -1})
	chip.regs[REG_RSSIVALUE] = 0xB4

	rssi, err := r.RSSI()
	require.NoError(t, err)
	require.Equal(t, RSSI(0xB4), rssi)
	require.Equal(t, -90, rssi.DBm())

	// A timed out measurement still yields the register value, flagged by the error.
	chip.stuckRssiDone = true
	chip.regs[REG_RSSIVALUE] = 0x60
	rssi, err = r.RSSI()
	require.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	require.Equal(t, RSSI(0x60), rssi)
	require.Equal(t, 4+1, chip.reads[REG_RSSICONFIG])
}

func TestTemperatureRestoresMode(t *testing.T) {
	clk := &stepClock{step: time.Microsecond}
	r, chip := newRadio(t, Opts{Clock: clk, TempDelay: 25 * time.Millisecond})
	for _, m := range allModes {
		require.NoError(t, r.SetMode(m))
		chip.modes = nil
		chip.regs[REG_TEMP2] = 0xA0
		clk.slept = 0

		temp, err := r.Temperature()
		require.NoError(t, err)
		require.Equal(t, Temperature(0xA0), temp)
		require.Equal(t, m, chip.mode(), "starting in %s", m)
		require.Equal(t, []Mode{Standby, m}, chip.modes)
		require.Equal(t, byte(TEMP1_MEAS_START), chip.regs[REG_TEMP1])
		require.Equal(t, 25*time.Millisecond, clk.slept)
	}
}

func TestTemperatureTimeout(t *testing.T) {
	r, chip := newRadio(t, Opts{Polls: 2, Timeout: -1})
	require.NoError(t, r.SetMode(RX))
	chip.stuckModeReady = true
	chip.modes = nil

	_, err := r.Temperature()
	require.True(t, errors.Is(err, ErrTimeout), "got %v", err)
	require.Equal(t, []Mode{Standby, RX}, chip.modes, "restore attempted anyway")
	require.Equal(t, RX, chip.mode())
}

func TestCelsius(t *testing.T) {
	require.Equal(t, physic.ZeroCelsius+5*physic.Celsius, Temperature(0xA0).Celsius(0))
	require.Equal(t, physic.ZeroCelsius+25*physic.Celsius, Temperature(0xA0).Celsius(20))
	require.Equal(t, physic.ZeroCelsius-10*physic.Celsius, Temperature(175).Celsius(0))
}

func TestSelfTest(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	chip.regs[REG_AESKEY1] = 0x42
	require.NoError(t, r.SelfTest())
	require.Equal(t, byte(0x42), chip.regs[REG_AESKEY1])

	// A stuck bit fails the test and the original value is still put back.
	chip.corrupt = map[byte]byte{REG_AESKEY1: 0x80}
	err := r.SelfTest()
	require.True(t, errors.Is(err, ErrSelfTest), "got %v", err)
	require.Equal(t, byte(0x42^0x80), chip.regs[REG_AESKEY1])
}

func TestSetFrequency(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	require.NoError(t, r.SetMode(RX))
	for _, f := range []uint32{915000000, 915000, 915} {
		require.NoError(t, r.SetFrequency(f))
		require.Equal(t, []byte{0xE4, 0xC0, 0x00}, chip.regs[REG_FRFMSB : REG_FRFLSB+1])
		require.Equal(t, RX, chip.mode())
	}
	require.NoError(t, r.SetFrequency(868))
	require.Equal(t, []byte{0xD9, 0x00, 0x00}, chip.regs[REG_FRFMSB : REG_FRFLSB+1])
}

func TestSetPower(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	require.NoError(t, r.SetMode(FS))

	tests := map[string]struct {
		dbm     int
		paBoost bool
		reg     byte
	}{
		"pa0 13dBm":      {13, false, 0x80 + 31},
		"pa0 clamped":    {20, false, 0x80 + 31},
		"pa0 -18dBm":     {-18, false, 0x80},
		"pa1 10dBm":      {10, true, 0x40 + 28},
		"pa1+pa2 17dBm":  {17, true, 0x60 + 31},
		"pa1+pa2 capped": {20, true, 0x60 + 31},
	}
	for n, tc := range tests {
		require.NoError(t, r.SetPower(tc.dbm, tc.paBoost))
		require.Equal(t, tc.reg, chip.regs[REG_PALEVEL], n)
		require.Equal(t, FS, chip.mode(), n)
	}
}

func TestModeString(t *testing.T) {
	require.Equal(t, "rx", RX.String())
	require.Equal(t, "standby", Standby.String())
	require.Equal(t, "mode(7)", Mode(7).String())
}

func TestSetPowerTestPA(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	chip.regs[REG_TESTPA1], chip.regs[REG_TESTPA2] = 0x5D, 0x7C
	require.NoError(t, r.SetPower(17, true))
	require.Equal(t, byte(0x55), chip.regs[REG_TESTPA1])
	require.Equal(t, byte(0x70), chip.regs[REG_TESTPA2])
}

func TestSetRate(t *testing.T) {
	r, chip := newRadio(t, Opts{})
	require.NoError(t, r.SetMode(RX))
	chip.modes = nil

	require.NoError(t, r.SetRate(JeeLabsRate))
	require.Equal(t, []byte{0x00, 0x02, 0x8A, 0x02, 0xE1}, chip.regs[REG_DATAMODUL : REG_FDEVLSB+1])
	require.Equal(t, byte(0x4A), chip.regs[REG_RXBW])
	require.Equal(t, byte(0x42), chip.regs[REG_AFCBW])
	require.Equal(t, byte(9), chip.regs[REG_TESTAFC])
	require.Equal(t, []Mode{Standby, RX}, chip.modes)

	// AFC control gets cleared, which needs FS mode.
	chip.regs[REG_AFCCTRL] = 0x20
	chip.modes = nil
	require.NoError(t, r.SetRate(50000))
	require.Equal(t, []byte{0x02, 0x80}, chip.regs[REG_BITRATEMSB : REG_BITRATELSB+1])
	require.Equal(t, byte(0), chip.regs[REG_AFCCTRL])
	require.Equal(t, []Mode{Standby, FS, RX}, chip.modes)

	chip.modes = nil
	require.Error(t, r.SetRate(12345))
	require.Empty(t, chip.modes)
	require.Equal(t, byte(0x80), chip.regs[REG_BITRATELSB], "unknown rate changes nothing")
}
