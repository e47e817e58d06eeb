// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// Package varint implements the JeeLabs variable length integer encoding used by small sensor
// packets: each value is sign-folded into an unsigned number (the sign goes into bit 0) and
// written big-endian in 7-bit groups. The last byte of each value has its top bit set.
//
// Reference: http://jeelabs.org/article/1620c/
package varint

import "errors"

// ErrTruncated is returned by Decode when the buffer ends in the middle of a value.
var ErrTruncated = errors.New("varint: truncated value")

// Append appends the encoding of v to dst and returns the extended buffer.
func Append(dst []byte, v int) []byte {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	var tmp [10]byte
	i := len(tmp) - 1
	tmp[i] = byte(u&0x7f) | 0x80
	for u >>= 7; u != 0; u >>= 7 {
		i--
		tmp[i] = byte(u & 0x7f)
	}
	return append(dst, tmp[i:]...)
}

// Encode encodes a list of signed ints.
func Encode(vals ...int) []byte {
	res := []byte{}
	for _, v := range vals {
		res = Append(res, v)
	}
	return res
}

// Decode decodes a buffer of varint bytes. Values decoded before a truncated trailing value are
// returned along with ErrTruncated.
func Decode(buf []byte) ([]int, error) {
	res := []int{}
	var u uint64
	for _, b := range buf {
		u = u<<7 | uint64(b&0x7f)
		if b&0x80 == 0 {
			continue
		}
		if u&1 == 0 {
			res = append(res, int(u>>1))
		} else {
			res = append(res, int(^(u >> 1)))
		}
		u = 0
	}
	if len(buf) > 0 && buf[len(buf)-1]&0x80 == 0 {
		return res, ErrTruncated
	}
	return res, nil
}
