// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/epi-one/epiond/messagebus"
)

func TestSendToSingleSubscriber(t *testing.T) {
	c := messagebus.Subscribe(messagebus.Block, 4)
	defer messagebus.Unsubscribe(c)

	messagebus.Send(messagebus.Block, "peer-1", "block-a")

	select {
	case msg := <-c.Chan():
		assert.Equal(t, "peer-1", msg.From)
		assert.Equal(t, "block-a", msg.Item)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestEachSubscriberGetsItsOwnCopy(t *testing.T) {
	const listeners = 5
	subs := make([]*messagebus.Channel, listeners)
	for i := range subs {
		subs[i] = messagebus.Subscribe(messagebus.Tx, 1)
	}
	defer func() {
		for _, c := range subs {
			messagebus.Unsubscribe(c)
		}
	}()

	messagebus.Send(messagebus.Tx, "mempool", "tx-1")

	var wg sync.WaitGroup
	for _, c := range subs {
		wg.Add(1)
		go func(c *messagebus.Channel) {
			defer wg.Done()
			select {
			case msg := <-c.Chan():
				assert.Equal(t, "tx-1", msg.Item)
			case <-time.After(time.Second):
				t.Error("subscriber never received its copy")
			}
		}(c)
	}
	wg.Wait()
}

func TestSendWithNoSubscribersDoesNotBlock(t *testing.T) {
	done := make(chan struct{})
	go func() {
		messagebus.Send(messagebus.Addr, "seed", "addr-1")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked with no subscribers")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	c := messagebus.Subscribe(messagebus.Block, 1)
	messagebus.Unsubscribe(c)

	messagebus.Send(messagebus.Block, "peer-2", "block-b")

	select {
	case <-c.Chan():
		t.Fatal("unsubscribed channel should not receive further messages")
	default:
	}
}
