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

package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/loxone-go/miniserver/wire"
)

// remoteControlSubprotocol is the Sec-WebSocket-Protocol value the
// Miniserver requires on the opening handshake.
const remoteControlSubprotocol = "remotecontrol"

// Transport is the bidirectional message channel a Client drives: the
// demultiplexer's read half (wire.FrameReader) plus a write half. A
// *websocket.Conn satisfies it directly since wire.FrameText/FrameBinary are
// defined to match gorilla's TextMessage/BinaryMessage numerically.
type Transport interface {
	wire.FrameReader
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// wsTransport adapts *websocket.Conn to Transport. It exists only so tests
// can substitute a scripted fake without pulling in a real dialer.
type wsTransport struct {
	conn *websocket.Conn
}

func (t *wsTransport) ReadMessage() (int, []byte, error)  { return t.conn.ReadMessage() }
func (t *wsTransport) WriteMessage(mt int, data []byte) error { return t.conn.WriteMessage(mt, data) }
func (t *wsTransport) Close() error                        { return t.conn.Close() }

// DialOptions configures Dial. The zero value is usable; DefaultDialOptions
// fills in the connection's default timeouts. Dial uses only DialTimeout,
// as the WebSocket handshake timeout; ReadTimeout and WriteTimeout are not
// applied to the connection.
type DialOptions struct {
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultDialOptions returns the default timeouts for a connection whose
// configuration doesn't override them (config.setDefaults mirrors these
// defaults).
func DefaultDialOptions() DialOptions {
	return DialOptions{
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Dial opens a WebSocket connection to uri, presenting the "remotecontrol"
// subprotocol the Miniserver requires (spec §2).
func Dial(ctx context.Context, uri string, opts DialOptions) (Transport, *http.Response, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: opts.DialTimeout,
		Subprotocols:     []string{remoteControlSubprotocol},
	}

	conn, resp, err := dialer.DialContext(ctx, uri, nil)
	if err != nil {
		if resp != nil {
			return nil, resp, fmt.Errorf("client: dial %s (HTTP %d): %w", uri, resp.StatusCode, err)
		}
		return nil, nil, fmt.Errorf("client: dial %s: %w", uri, err)
	}

	return &wsTransport{conn: conn}, resp, nil
}
