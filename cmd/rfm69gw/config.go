// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"fmt"
	"os"

	"github.com/flynn/json5"

	"github.com/pixma/devices/rfm69"
)

// Config is the gateway configuration, read from a JSON5 file.
type Config struct {
	Mqtt  MqttConfig  `json:"mqtt"`
	Radio RadioConfig `json:"radio"`
}

// MqttConfig describes the broker connection.
type MqttConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Prefix   string `json:"prefix"` // topic prefix, packets go to <prefix>/rx and come from <prefix>/tx
}

// RadioConfig describes the radio hardware and its settings.
type RadioConfig struct {
	SpiPort  string `json:"spi_port"`  // periph SPI port name, empty for the first
	CSPin    string `json:"cs_pin"`    // chip select gpio pin name
	Speed    int    `json:"spi_speed"` // SPI clock in Hz
	Freq     int    `json:"freq"`      // center frequency in any unit
	Rate     int    `json:"rate"`      // bit rate, one of rfm69.Rates
	Power    int    `json:"power"`     // output power in dBm
	PABoost  bool   `json:"pa_boost"`  // RFM69H(C)W module with PA1 and PA2
	Group    int    `json:"group"`     // JeeLabs network group, also the second sync byte
	PollMs   int    `json:"poll_ms"`   // interval between PayloadReady polls
	Realtime int    `json:"realtime"`  // realtime priority of the radio thread, 0 to disable
}

func defaultConfig() Config {
	return Config{
		Mqtt: MqttConfig{Host: "localhost", Port: 1883, Prefix: "rfm69"},
		Radio: RadioConfig{CSPin: "GPIO25", Speed: 4000000, Freq: 868,
			Rate: rfm69.JeeLabsRate, Power: 13, Group: 6, PollMs: 5},
	}
}

// loadConfig reads the config file at path on top of the defaults. An empty path yields the
// defaults.
func loadConfig(path string) (Config, error) {
	conf := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return conf, err
		}
		if err := json5.Unmarshal(data, &conf); err != nil {
			return conf, fmt.Errorf("cannot parse %s: %s", path, err)
		}
	}
	return conf, conf.validate()
}

func (c *Config) validate() error {
	r := c.Radio
	switch {
	case c.Mqtt.Host == "":
		return fmt.Errorf("mqtt host missing")
	case c.Mqtt.Prefix == "":
		return fmt.Errorf("mqtt topic prefix missing")
	case r.Group < 0 || r.Group > 255:
		return fmt.Errorf("group %d out of range", r.Group)
	case r.Rate <= 0 || !knownRate(uint32(r.Rate)):
		return fmt.Errorf("no radio settings for %dbps", r.Rate)
	case r.Power < -18 || r.Power > 17:
		return fmt.Errorf("power %ddBm out of range", r.Power)
	case r.PollMs <= 0:
		return fmt.Errorf("poll interval must be positive")
	case r.Realtime < 0 || r.Realtime > 99:
		return fmt.Errorf("realtime priority %d out of range", r.Realtime)
	}
	return nil
}

func knownRate(rate uint32) bool {
	_, ok := rfm69.Rates[rate]
	return ok
}
