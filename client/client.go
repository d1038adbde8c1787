// Copyright (C) 2025 loxone-go
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package client implements the Miniserver request/reply engine: a
// foreground half that owns the write side and the single outstanding
// request, and a background goroutine that owns the read side, feeding
// replies back to the waiting request and event tables to subscribers
// (spec §4, §5, §6).
package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loxone-go/miniserver/internal/logger"
	"github.com/loxone-go/miniserver/internal/metrics"
	"github.com/loxone-go/miniserver/session"
	"github.com/loxone-go/miniserver/wire"
)

// Client is a single connection to a Miniserver. It is not safe to issue
// two requests concurrently from separate goroutines — the protocol
// permits only one outstanding request at a time (spec §4.3) — but it is
// safe to read Events() from a separate goroutine while requests are in
// flight.
type Client struct {
	transport Transport
	demux     *wire.Demux
	log       logger.Logger

	session *session.Session

	state atomic.Int32

	writeMu sync.Mutex // serializes the request/reply round trip

	replies  chan wire.Message
	events   chan wire.UUIDState
	readErr  chan error
	closed   chan struct{}
	closeOne sync.Once

	lastEventUnixNano atomic.Int64 // 0 until the first event table arrives
}

// Connect dials uri and starts the background read loop. The returned
// Client is in StateConnected; call KeyExchange to advance it.
func Connect(ctx context.Context, uri string, opts DialOptions) (*Client, error) {
	t, _, err := Dial(ctx, uri, opts)
	if err != nil {
		return nil, err
	}
	return newClient(t), nil
}

// newClient wraps an already-established Transport, used directly by tests
// with a scripted fake transport.
func newClient(t Transport) *Client {
	c := &Client{
		transport: t,
		demux:     wire.NewDemux(t),
		log:       logger.GetDefaultLogger(),
		replies:   make(chan wire.Message, 1),
		events:    make(chan wire.UUIDState, 256),
		readErr:   make(chan error, 1),
		closed:    make(chan struct{}),
	}
	c.demux.OnUnknownInfoByte(func(info byte) {
		c.log.Warn("unrecognized header info byte", logger.Int("info", int(info)))
	})
	metrics.ConnectionState.Set(float64(StateConnected))
	go c.readLoop()
	return c
}

// State returns the connection's current position in the state machine.
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// advance moves the connection forward to state and mirrors it onto the
// ConnectionState gauge (spec §4.6).
func (c *Client) advance(state ConnState) {
	c.state.Store(int32(state))
	metrics.ConnectionState.Set(float64(state))
}

// Events returns the channel subscribers read decoded state updates from.
// It is closed once the read loop exits.
func (c *Client) Events() <-chan wire.UUIDState {
	return c.events
}

// LastEventAge reports how long ago the read loop last flattened an event
// table onto Events(), and whether any event table has arrived yet. Callers
// use this to build a SubscriptionHealthCheck against a live connection.
func (c *Client) LastEventAge() (time.Duration, bool) {
	nano := c.lastEventUnixNano.Load()
	if nano == 0 {
		return 0, false
	}
	return time.Since(time.Unix(0, nano)), true
}

// Close shuts down the transport and stops the read loop. It is safe to
// call more than once.
func (c *Client) Close() error {
	var err error
	c.closeOne.Do(func() {
		close(c.closed)
		err = c.transport.Close()
	})
	return err
}

// readLoop owns the transport's read half for the lifetime of the
// connection, routing every assembled message to either the reply channel
// or the event fan-out (spec §4.4, §6).
func (c *Client) readLoop() {
	defer close(c.replies)
	defer close(c.events)

	for {
		msg, err := c.demux.NextMessage()
		if err != nil {
			select {
			case c.readErr <- err:
			default:
			}
			metrics.DecodeErrors.WithLabelValues("demux").Inc()
			return
		}

		switch {
		case msg.IsKeepAlive():
			metrics.FramesRead.WithLabelValues("keep_alive").Inc()
			c.log.Debug("miniserver keep-alive received")
			continue
		case msg.IsOutOfService():
			metrics.FramesRead.WithLabelValues("out_of_service").Inc()
			c.log.Warn("miniserver reported out of service")
			continue
		case msg.IsEvent():
			table, _ := msg.IsEventTable()
			metrics.EventRecordsDecoded.WithLabelValues(eventKindLabel(table.Kind)).Add(float64(len(table.Flatten())))
			c.lastEventUnixNano.Store(time.Now().UnixNano())
			for _, us := range table.Flatten() {
				select {
				case c.events <- us:
				case <-c.closed:
					return
				}
			}
		default:
			select {
			case c.replies <- msg:
			case <-c.closed:
				return
			}
		}
	}
}

func eventKindLabel(k wire.EventTableKind) string {
	switch k {
	case wire.ValueEvents:
		return "value"
	case wire.TextEvents:
		return "text"
	case wire.DaytimerEvents:
		return "daytimer"
	case wire.WeatherEvents:
		return "weather"
	default:
		return "unknown"
	}
}

// sendRecv writes cmd as a text frame and waits for the next non-event
// message, serializing the whole round trip since the protocol allows only
// one outstanding request (spec §4.3).
func (c *Client) sendRecv(cmd string) (wire.Message, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.closed:
		return wire.Message{}, ErrClosed
	default:
	}

	start := time.Now()
	if err := c.transport.WriteMessage(wire.FrameText, []byte(cmd)); err != nil {
		metrics.RequestsTotal.WithLabelValues("transport_error").Inc()
		return wire.Message{}, fmt.Errorf("client: write command: %w", err)
	}

	select {
	case msg, ok := <-c.replies:
		if !ok {
			metrics.RequestsTotal.WithLabelValues("closed").Inc()
			return wire.Message{}, c.lastReadErr()
		}
		metrics.RequestsTotal.WithLabelValues("ok").Inc()
		metrics.RequestDuration.WithLabelValues(requestLabel(cmd)).Observe(time.Since(start).Seconds())
		return msg, nil
	case <-c.closed:
		metrics.RequestsTotal.WithLabelValues("closed").Inc()
		return wire.Message{}, ErrClosed
	}
}

// sendRecvEnc wraps cmd in the jdev/sys/enc/<ciphertext> envelope before
// sending it, used by every authenticated request after key exchange (spec
// §4.2).
func (c *Client) sendRecvEnc(cmd string) (wire.Message, error) {
	if c.session == nil {
		return wire.Message{}, ErrNoSession
	}
	encoded, err := session.EncryptCommandWS("enc", cmd, c.session)
	if err != nil {
		return wire.Message{}, fmt.Errorf("client: encrypt command: %w", err)
	}
	return c.sendRecv(encoded)
}

// lastReadErr drains the most recent read-loop error, if any was recorded.
func (c *Client) lastReadErr() error {
	select {
	case err := <-c.readErr:
		return fmt.Errorf("client: connection closed: %w", err)
	default:
		return ErrClosed
	}
}

// requestLabel keeps the RequestDuration cardinality bounded to a short
// prefix rather than the full (and salt/cipher-bearing) command string.
func requestLabel(cmd string) string {
	const maxLabelLen = 40
	if len(cmd) > maxLabelLen {
		return cmd[:maxLabelLen]
	}
	return cmd
}
