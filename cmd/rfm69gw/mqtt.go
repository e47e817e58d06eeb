// Copyright (c) 2016 by Thorsten von Eicken, see LICENSE file for details

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mq is a handle onto a MQTT broker connection. The connection is persistent, i.e.,
// re-establishes itself if there is a disconnect. Subscriptions also get renewed after a
// reconnect.
type mq struct {
	conn   mqtt.Client
	prefix string
	mu     sync.Mutex
	subs   map[string]mqtt.MessageHandler // full topic -> handler, replayed on reconnect
}

// newMQ connects to the broker described by conf.
func newMQ(conf MqttConfig) (*mq, error) {
	hostname, _ := os.Hostname()
	id := "rfm69gw-" + hostname
	log.Debugf("Configuring MQTT with client id %s: %s:%d", id, conf.Host, conf.Port)
	mqtt.ERROR = log.WithField("pkg", "mqtt")

	mq := &mq{prefix: conf.Prefix, subs: make(map[string]mqtt.MessageHandler)}
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", conf.Host, conf.Port)).
		SetClientID(id).
		SetUsername(conf.User).
		SetPassword(conf.Password).
		SetAutoReconnect(true).
		SetOnConnectHandler(mq.resubscribe)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnf("MQTT connection lost: %s", err)
	})

	mq.conn = mqtt.NewClient(opts)
	token := mq.conn.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, errors.New("timeout connecting to MQTT broker")
	}
	if err := token.Error(); err != nil {
		return nil, err
	}
	log.Infof("MQTT connected")
	return mq, nil
}

func (mq *mq) resubscribe(c mqtt.Client) {
	mq.mu.Lock()
	defer mq.mu.Unlock()
	for topic, h := range mq.subs {
		c.Subscribe(topic, 1, h)
	}
}

// Publish publishes payload, JSON encoded, to the topic <prefix>/<suffix>.
func (mq *mq) Publish(suffix string, payload interface{}) error {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	mq.conn.Publish(mq.prefix+"/"+suffix, 1, false, jsonPayload)
	return nil
}

// Subscribe subscribes to <prefix>/<suffix> and calls handler with the raw payload of every
// message received.
func (mq *mq) Subscribe(suffix string, handler func(payload []byte)) error {
	topic := mq.prefix + "/" + suffix
	h := func(_ mqtt.Client, m mqtt.Message) { handler(m.Payload()) }
	mq.mu.Lock()
	mq.subs[topic] = h
	mq.mu.Unlock()
	token := mq.conn.Subscribe(topic, 1, h)
	if !token.WaitTimeout(2 * time.Second) {
		return fmt.Errorf("timeout subscribing to %s", topic)
	}
	return token.Error()
}

// Close disconnects from the broker, giving in-flight messages a moment to go out.
func (mq *mq) Close() { mq.conn.Disconnect(250) }
