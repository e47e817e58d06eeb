// Copyright 2016 by Thorsten von Eicken, see LICENSE file

// Package gpsnav encodes GPS navigation fixes into compact varint packets and back.
//
// A packet is the type byte 10 followed by eight varints:
//
//	1. UTC time as HHMMSSsss
//	2. 'A' (valid) or 'V' (warning) status
//	3/4. latitude/longitude in millionths of a degree, south and west negative
//	5. speed in 1/10000 knots
//	6. course made good in 1/10000 degrees
//	7. date as DDMMYY
//	8. magnetic variation in 1/10000 degrees, west negative
package gpsnav

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/pixma/devices/varint"
)

// Type is the packet type byte that precedes a navigation packet.
const Type = 10

const fields = 8

// Nav is one navigation fix.
type Nav struct {
	Time   time.Time // UTC, millisecond resolution
	Valid  bool
	Lat    float64 // degrees
	Lon    float64 // degrees
	Speed  float64 // knots
	Course float64 // degrees
	MagVar float64 // degrees
}

// FromRMC converts a parsed RMC sentence into a fix.
func FromRMC(s nmea.RMC) Nav {
	return Nav{
		Time: time.Date(2000+s.Date.YY, time.Month(s.Date.MM), s.Date.DD,
			s.Time.Hour, s.Time.Minute, s.Time.Second, s.Time.Millisecond*1000000, time.UTC),
		Valid:  s.Validity == nmea.ValidRMC,
		Lat:    s.Latitude,
		Lon:    s.Longitude,
		Speed:  s.Speed,
		Course: s.Course,
		MagVar: s.Variation,
	}
}

// ParseRMC parses one NMEA sentence. Sentences other than RMC yield ok == false.
func ParseRMC(line string) (n Nav, ok bool, err error) {
	s, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return Nav{}, false, err
	}
	rmc, ok := s.(nmea.RMC)
	if !ok {
		return Nav{}, false, nil
	}
	return FromRMC(rmc), true, nil
}

// Encode returns the packet for n, type byte included.
func Encode(n Nav) []byte {
	t := n.Time.UTC()
	hms := (t.Hour()*10000+t.Minute()*100+t.Second())*1000 + t.Nanosecond()/1000000
	date := t.Day()*10000 + int(t.Month())*100 + t.Year()%100
	status := 'V'
	if n.Valid {
		status = 'A'
	}
	pkt := []byte{Type}
	for _, v := range []int{hms, int(status), scale(n.Lat, 1e6), scale(n.Lon, 1e6),
		scale(n.Speed, 1e4), scale(n.Course, 1e4), date, scale(n.MagVar, 1e4)} {
		pkt = varint.Append(pkt, v)
	}
	return pkt
}

func scale(v, f float64) int { return int(math.Round(v * f)) }

// Decode parses a packet produced by Encode.
func Decode(pkt []byte) (Nav, error) {
	if len(pkt) == 0 || pkt[0] != Type {
		return Nav{}, errors.New("gpsnav: not a navigation packet")
	}
	data, err := varint.Decode(pkt[1:])
	if err != nil {
		return Nav{}, fmt.Errorf("gpsnav: %w", err)
	}
	if len(data) != fields {
		return Nav{}, fmt.Errorf("gpsnav: %d fields, expected %d", len(data), fields)
	}
	return Nav{
		Time:   dateTime(data[6], data[0]),
		Valid:  data[1] == 'A',
		Lat:    float64(data[2]) / 1e6,
		Lon:    float64(data[3]) / 1e6,
		Speed:  float64(data[4]) / 1e4,
		Course: float64(data[5]) / 1e4,
		MagVar: float64(data[7]) / 1e4,
	}, nil
}

func dateTime(d, t int) time.Time {
	t1 := t / 1000
	return time.Date(2000+d%100, time.Month((d/100)%100), d/10000,
		t1/10000, (t1/100)%100, t1%100, (t%1000)*1000000, time.UTC)
}

func (n Nav) String() string {
	status := "WARN"
	if n.Valid {
		status = "OK"
	}
	return fmt.Sprintf("%s %s <%.6f %.6f> %.4fkts %.1f° mag%.1f°",
		n.Time.Format("2006-01-02 15:04:05.000"), status, n.Lat, n.Lon, n.Speed, n.Course,
		n.MagVar)
}

// String pretty-prints a packet. Packets that do not decode as a fix are printed as the list of
// varints they contain, or as hex if they are not valid varints either.
func String(pkt []byte) string {
	if len(pkt) == 0 {
		return "<empty>"
	}
	if n, err := Decode(pkt); err == nil {
		return n.String()
	}
	data, err := varint.Decode(pkt)
	if err != nil {
		return fmt.Sprintf("%x", pkt)
	}
	strs := make([]string, len(data))
	for i, v := range data {
		strs[i] = strconv.Itoa(v)
	}
	return strings.Join(strs, ", ")
}
