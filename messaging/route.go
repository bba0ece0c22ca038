// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package messaging

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/bitmark-inc/assetflow/fault"
)

// DefaultMaxMessages - capacity of one direction of a session
const DefaultMaxMessages = 100

// route - one direction of a session
type route struct {
	name    string
	channel chan []byte
	// closed and closeLock are used to protect us from writing to a closed channel
	// reads use the channel's built-in mechanism to check if the channel is closed
	closed    bool
	closeLock sync.Mutex
	capacity  int
}

func newRoute(name string, capacity int) *route {
	return &route{
		name:     name,
		channel:  make(chan []byte, capacity),
		capacity: capacity,
	}
}

// enqueue a copy of the payload
func (r *route) enqueue(payload []byte) error {
	r.closeLock.Lock()
	defer r.closeLock.Unlock()

	if r.closed {
		return errors.Wrapf(fault.ErrSessionClosed, "route '%s' is closed", r.name)
	}
	if len(r.channel) == r.capacity {
		return errors.Wrapf(fault.ErrPartyNotReachable, "route '%s' reached capacity of %d", r.name, r.capacity)
	}
	r.channel <- append([]byte{}, payload...)
	return nil
}

// dequeue the next payload, waiting until the context is done
//
// payloads queued before the route was closed are still delivered
func (r *route) dequeue(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		if context.DeadlineExceeded == ctx.Err() {
			return nil, errors.Wrapf(fault.ErrSessionTimeout, "route '%s'", r.name)
		}
		return nil, errors.Wrapf(fault.ErrSessionClosed, "route '%s': %s", r.name, ctx.Err())
	case payload, isOpen := <-r.channel:
		if !isOpen {
			return nil, errors.Wrapf(fault.ErrSessionClosed, "route '%s' is closed", r.name)
		}
		return payload, nil
	}
}

// close the route
func (r *route) close() {
	r.closeLock.Lock()
	defer r.closeLock.Unlock()

	if !r.closed {
		r.closed = true
		close(r.channel)
	}
}
