// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package messagebus - bounded queues between goroutines
//
// a queue never blocks the sender: when it is full the item is refused
// and the sender decides what to report
package messagebus

import (
	"sync"
)

// DefaultQueueSize - used when a queue is created with size zero
const DefaultQueueSize = 1000

// Message - an item and where it came from
type Message struct {
	From string
	Item interface{}
}

// Queue - a bounded queue of messages
type Queue struct {
	sync.RWMutex
	c      chan Message
	closed bool
}

// New - create a queue holding up to size messages
func New(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{
		c: make(chan Message, size),
	}
}

// Send - queue an item
//
// false if the queue is full or closed
func (q *Queue) Send(from string, item interface{}) bool {
	q.RLock()
	defer q.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.c <- Message{From: from, Item: item}:
		return true
	default:
		return false
	}
}

// Chan - channel to read from
//
// closed after Close once drained
func (q *Queue) Chan() <-chan Message {
	return q.c
}

// Close - refuse further messages
func (q *Queue) Close() {
	q.Lock()
	defer q.Unlock()
	if !q.closed {
		q.closed = true
		close(q.c)
	}
}
