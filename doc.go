// github.com/pixma/devices contains a driver for the HopeRF RFM69 packet radio (Semtech SX1231)
// and the small amount of plumbing needed to run it from a Linux board. The radio driver talks
// to the chip through the three-operation Bus contract defined here, so it does not care
// whether the bytes travel over periph.io (see spibus) or embd (see NewEmbdBus). Simple
// commands to exercise the radio can be found in the cmd directory tree.
package devices
