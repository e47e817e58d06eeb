// Copyright 2016 by Thorsten von Eicken, see LICENSE file

package rfm69

// Register addresses, from the SX1231 datasheet.
const (
	REG_FIFO        = 0x00
	REG_OPMODE      = 0x01
	REG_DATAMODUL   = 0x02
	REG_BITRATEMSB  = 0x03
	REG_BITRATELSB  = 0x04
	REG_FDEVMSB     = 0x05
	REG_FDEVLSB     = 0x06
	REG_FRFMSB      = 0x07
	REG_FRFMID      = 0x08
	REG_FRFLSB      = 0x09
	REG_AFCCTRL     = 0x0B
	REG_VERSION     = 0x10
	REG_PALEVEL     = 0x11
	REG_PARAMP      = 0x12
	REG_OCP         = 0x13
	REG_RXBW        = 0x19
	REG_AFCBW       = 0x1A
	REG_AFCFEI      = 0x1E
	REG_RSSICONFIG  = 0x23
	REG_RSSIVALUE   = 0x24
	REG_DIOMAPPING1 = 0x25
	REG_DIOMAPPING2 = 0x26
	REG_IRQFLAGS1   = 0x27
	REG_IRQFLAGS2   = 0x28
	REG_RSSITHRES   = 0x29
	REG_RXTIMEOUT1  = 0x2A
	REG_RXTIMEOUT2  = 0x2B
	REG_PREAMBLELSB = 0x2D
	REG_SYNCCONFIG  = 0x2E
	REG_SYNCVALUE1  = 0x2F
	REG_SYNCVALUE2  = 0x30
	REG_PKTCONFIG1  = 0x37
	REG_PAYLOADLEN  = 0x38
	REG_FIFOTHRESH  = 0x3C
	REG_PKTCONFIG2  = 0x3D
	REG_AESKEY1     = 0x3E
	REG_TEMP1       = 0x4E
	REG_TEMP2       = 0x4F
	REG_TESTPA1     = 0x5A
	REG_TESTPA2     = 0x5C
	REG_TESTDAGC    = 0x6F
	REG_TESTAFC     = 0x71

	REG_WRITE = 0x80 // address bit 7 flags a write

	OPMODE_MODE_MASK = 0x1C

	IRQ1_MODEREADY = 1 << 7
	IRQ1_RXREADY   = 1 << 6
	IRQ1_TXREADY   = 1 << 5
	IRQ1_PLLLOCK   = 1 << 4
	IRQ1_RSSI      = 1 << 3
	IRQ1_TIMEOUT   = 1 << 2
	IRQ1_SYNCMATCH = 1 << 0

	IRQ2_FIFOFULL     = 1 << 7
	IRQ2_FIFONOTEMPTY = 1 << 6
	IRQ2_FIFOLEVEL    = 1 << 5
	IRQ2_FIFOOVERRUN  = 1 << 4
	IRQ2_PACKETSENT   = 1 << 3
	IRQ2_PAYLOADREADY = 1 << 2
	IRQ2_CRCOK        = 1 << 1

	RSSI_START = 1 << 0
	RSSI_DONE  = 1 << 1

	TEMP1_MEAS_START   = 1 << 3
	TEMP1_MEAS_RUNNING = 1 << 2

	DIO_MAPPING = 0x31
)
