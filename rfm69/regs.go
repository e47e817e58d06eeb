// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package rfm69

import "fmt"

// ReadReg reads one register. Bit 7 of addr is ignored.
func (r *Radio) ReadReg(addr byte) byte {
	r.bus.Select()
	r.bus.Transfer(addr &^ REG_WRITE)
	v := r.bus.Transfer(0)
	r.bus.Deselect()
	return v
}

// WriteReg writes one register. Bit 7 of addr is ignored.
func (r *Radio) WriteReg(addr, value byte) {
	r.bus.Select()
	r.bus.Transfer(addr | REG_WRITE)
	r.bus.Transfer(value)
	r.bus.Deselect()
}

// ConfigEnd is the address that terminates a configuration table.
const ConfigEnd = 0xFF

// RegValue is one entry of a configuration table.
type RegValue struct {
	Addr  byte
	Value byte
}

// Configure writes the register settings in table in order. Processing stops at the first
// entry whose address is ConfigEnd, or at the end of the slice.
func (r *Radio) Configure(table []RegValue) {
	for _, rv := range table {
		if rv.Addr == ConfigEnd {
			return
		}
		r.WriteReg(rv.Addr, rv.Value)
	}
}

// DefaultConfig puts the chip in FSK variable-length packet mode with a 66 byte maximum payload,
// leaving frequency, bit rate and power at their reset values.
var DefaultConfig = []RegValue{
	{REG_PALEVEL, 0x9F},            // PA0 at full power
	{REG_PARAMP, 0x09},             // Pa ramp in 40us
	{REG_AFCFEI, 0x0C},             // AfcAutoclearOn, AfcAutoOn
	{REG_DIOMAPPING1, DIO_MAPPING}, // DIO0 packet sent / payload ready
	{REG_DIOMAPPING2, 0x07},        // disable clkout
	{REG_RSSITHRES, 0xA8},          // RssiThresh -84dBm
	{REG_RXTIMEOUT1, 0x00},         // disable RxStart timeout
	{REG_RXTIMEOUT2, 0x40},         // RssiTimeout after 2*64=128 bytes
	{REG_PREAMBLELSB, 0x05},        // PreambleSize = 5
	{REG_SYNCCONFIG, 0x88},         // sync on, 2 sync bytes
	{REG_SYNCVALUE1, 0x2D},         // SyncValue1 = 0x2D
	{REG_SYNCVALUE2, 0x06},         // SyncValue2 = group 6
	{REG_PKTCONFIG1, 0x90},         // variable length, crc on, no addr filter
	{REG_PAYLOADLEN, MaxFrameLen},  // PayloadLength = max 66
	{REG_FIFOTHRESH, 0x8F},         // tx on fifo not empty, level 15
	{REG_PKTCONFIG2, 0x12},         // interpkt = 1, autorxrestart on
	{REG_TESTDAGC, 0x30},           // continuous DAGC w/out low-beta offset
	{ConfigEnd, 0},
}

// DumpRegs logs the contents of registers 0x01 through 0x5F.
func (r *Radio) DumpRegs() {
	var regs [0x60]byte
	r.bus.Select()
	r.bus.Transfer(REG_OPMODE)
	for i := 1; i < len(regs); i++ {
		regs[i] = r.bus.Transfer(0)
	}
	r.bus.Deselect()
	r.log("     0  1  2  3  4  5  6  7  8  9  A  B  C  D  E  F")
	for i := 0; i < len(regs); i += 16 {
		line := fmt.Sprintf("%02x:", i)
		for j := 0; j < 16 && i+j < len(regs); j++ {
			line += fmt.Sprintf(" %02x", regs[i+j])
		}
		r.log(line)
	}
}
