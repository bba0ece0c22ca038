// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"context"
	"sync"

	"github.com/bitmark-inc/logger"

	"github.com/bitmark-inc/assetflow/flow"
	"github.com/bitmark-inc/assetflow/messagebus"
)

// dispatcher - start a responder for each inbound session
type dispatcher struct {
	log       *logger.L
	name      string
	inbound   <-chan messagebus.Message
	responder *flow.Responder
}

// Run - background process loop
func (d *dispatcher) Run(args interface{}, shutdown <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

loop:
	for {
		select {
		case <-shutdown:
			break loop

		case item, ok := <-d.inbound:
			if !ok {
				break loop
			}
			session, ok := item.Item.(flow.Session)
			if !ok {
				d.log.Warnf("%s: discard inbound item from: %s", d.name, item.From)
				continue loop
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer session.Close()

				outcome, err := d.responder.Respond(ctx, session)
				if nil != err {
					d.log.Warnf("%s: session from: %s  error: %s", d.name, item.From, err)
				}
				if nil != outcome {
					d.log.Infof("%s: tx: %s  outcome: %s  reason: %q", d.name, outcome.TxId, outcome.State, outcome.Reason)
				}
			}()
		}
	}

	cancel()
	wg.Wait()
	d.log.Debugf("%s: dispatcher stopped", d.name)
}
