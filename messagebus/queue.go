// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messagebus

import "sync"

// Topic names one of the message channels multiple independent
// subscribers can listen on.
type Topic int

// the topics this core hands between packages to avoid direct imports
// between peermgr and the dag/mempool/addrmgr consumers
const (
	Block Topic = iota
	Tx
	Addr
)

// Message is one item posted to a topic.
type Message struct {
	From string
	Item interface{}
}

// Channel is one subscriber's view of a topic.
type Channel struct {
	topic Topic
	queue chan Message
}

// Chan returns the receive side of the subscription.
func (c *Channel) Chan() <-chan Message {
	return c.queue
}

var globalData struct {
	sync.Mutex
	subscribers map[Topic][]*Channel
}

func init() {
	globalData.subscribers = make(map[Topic][]*Channel)
}

// Subscribe registers a new listener on topic with the given channel
// buffer depth. Every subscriber gets its own independent copy of each
// message, following the teacher's broadcaster pattern of giving each
// peer connection its own outbound copy rather than sharing one queue.
func Subscribe(topic Topic, bufferSize int) *Channel {
	globalData.Lock()
	defer globalData.Unlock()

	c := &Channel{topic: topic, queue: make(chan Message, bufferSize)}
	globalData.subscribers[topic] = append(globalData.subscribers[topic], c)
	return c
}

// Unsubscribe removes a channel from its topic; it does not close the
// channel, so a goroutine still reading from it can drain what remains
// queued.
func Unsubscribe(c *Channel) {
	globalData.Lock()
	defer globalData.Unlock()

	subs := globalData.subscribers[c.topic]
	for i, s := range subs {
		if s == c {
			globalData.subscribers[c.topic] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Send fans a message out to every current subscriber of topic. A
// subscriber whose buffer is full is skipped rather than blocking the
// sender — a slow consumer must not stall the rest of the bus.
func Send(topic Topic, from string, item interface{}) {
	globalData.Lock()
	subs := make([]*Channel, len(globalData.subscribers[topic]))
	copy(subs, globalData.subscribers[topic])
	globalData.Unlock()

	msg := Message{From: from, Item: item}
	for _, c := range subs {
		select {
		case c.queue <- msg:
		default:
		}
	}
}
