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

package wire

import (
	"encoding/binary"
	"fmt"
)

// Frame kinds, matching gorilla/websocket's TextMessage/BinaryMessage
// constants numerically so a *websocket.Conn satisfies FrameReader without
// a translation layer at the call site.
const (
	FrameText   = 1
	FrameBinary = 2
)

// FrameReader is the abstract bidirectional message channel the
// demultiplexer consumes. *websocket.Conn implements it; tests supply a
// fake. The transport itself (TLS, dialing, ping/pong) is out of scope here.
type FrameReader interface {
	ReadMessage() (messageType int, data []byte, err error)
}

// messageType is the code carried in byte 1 of a header frame.
type messageType uint8

const (
	typeText               messageType = 0
	typeBinaryFile         messageType = 1
	typeValueEventTable    messageType = 2
	typeTextEventTable     messageType = 3
	typeDaytimerEventTable messageType = 4
	typeOutOfService       messageType = 5
	typeKeepAlive          messageType = 6
	typeWeatherEventTable  messageType = 7
)

// UnknownInfoByteLogger receives the raw info byte whenever a header frame's
// message-info field is neither 0 (length inline) nor the documented
// "length follows" marker, matching the open question in spec §9: any
// non-zero value means "length follows in the next frame", but no info-byte
// value beyond non-zero is otherwise defined, so this hook exists purely to
// flag the behavior in logs without failing the read.
type UnknownInfoByteLogger func(info byte)

// Demux reads paired header/[length]/body frames from a FrameReader and
// assembles them into typed Messages (C3/C4).
type Demux struct {
	r          FrameReader
	onUnknown  UnknownInfoByteLogger
}

// NewDemux creates a demultiplexer over r.
func NewDemux(r FrameReader) *Demux {
	return &Demux{r: r}
}

// OnUnknownInfoByte registers a callback invoked for every header frame
// whose info byte is non-zero and not exactly 1 — see UnknownInfoByteLogger.
func (d *Demux) OnUnknownInfoByte(fn UnknownInfoByteLogger) {
	d.onUnknown = fn
}

// NextMessage blocks until the next protocol message has been fully
// assembled, or returns an error for a transport failure or a malformed
// frame sequence (spec §7: FrameShape errors are fatal to the demux loop).
func (d *Demux) NextMessage() (Message, error) {
	kind, header, err := d.r.ReadMessage()
	if err != nil {
		return Message{}, fmt.Errorf("wire: read header frame: %w", err)
	}
	if kind != FrameBinary {
		return Message{}, fmt.Errorf("wire: header frame must be binary, got type %d", kind)
	}

	mt, msgLen, info, lengthFollows, err := parseHeader(header)
	if err != nil {
		return Message{}, err
	}
	if lengthFollows && info != 1 && d.onUnknown != nil {
		d.onUnknown(info)
	}

	if lengthFollows {
		lkind, lbody, err := d.r.ReadMessage()
		if err != nil {
			return Message{}, fmt.Errorf("wire: read length frame: %w", err)
		}
		if lkind != FrameBinary || len(lbody) < 4 {
			return Message{}, fmt.Errorf("wire: malformed length frame")
		}
		msgLen = binary.LittleEndian.Uint32(lbody[:4])
	}

	return d.readBody(mt, msgLen)
}

// parseHeader validates and decodes an 8-byte header frame (spec §4.2).
// It returns whether a separate length frame follows (any non-zero info
// byte, per the open question in spec §9).
func parseHeader(header []byte) (mt messageType, msgLen uint32, info byte, lengthFollows bool, err error) {
	if len(header) != 8 {
		return 0, 0, 0, false, fmt.Errorf("wire: truncated header frame: %d bytes", len(header))
	}
	if header[0] != 0x03 {
		return 0, 0, 0, false, fmt.Errorf("wire: bad header magic: 0x%02x", header[0])
	}
	code := header[1]
	if code > 7 {
		return 0, 0, 0, false, fmt.Errorf("wire: unknown message type code %d", code)
	}
	info = header[2]
	msgLen = binary.LittleEndian.Uint32(header[4:8])
	return messageType(code), msgLen, info, info != 0, nil
}

// readBody reads (or skips, for the two no-body types) the body frame
// matching mt and decodes it into a Message.
func (d *Demux) readBody(mt messageType, msgLen uint32) (Message, error) {
	switch mt {
	case typeText:
		kind, body, err := d.r.ReadMessage()
		if err != nil {
			return Message{}, fmt.Errorf("wire: read text body: %w", err)
		}
		if kind != FrameText {
			return Message{}, fmt.Errorf("wire: expected text body frame for type Text, got %d", kind)
		}
		return NewTextMessage(string(body)), nil

	case typeBinaryFile:
		// spec §9: the source accepts either a text or binary body here.
		kind, body, err := d.r.ReadMessage()
		if err != nil {
			return Message{}, fmt.Errorf("wire: read binary-file body: %w", err)
		}
		switch kind {
		case FrameText:
			return NewBinaryTextMessage(string(body)), nil
		case FrameBinary:
			return NewBinaryFileMessage(body), nil
		default:
			return Message{}, fmt.Errorf("wire: invalid body frame kind %d for BinaryFile", kind)
		}

	case typeValueEventTable, typeTextEventTable, typeDaytimerEventTable, typeWeatherEventTable:
		kind, body, err := d.r.ReadMessage()
		if err != nil {
			return Message{}, fmt.Errorf("wire: read event-table body: %w", err)
		}
		if kind != FrameBinary {
			return Message{}, fmt.Errorf("wire: event-table body must be binary, got %d", kind)
		}
		table, err := decodeEventTable(mt, body, msgLen)
		if err != nil {
			return Message{}, err
		}
		return NewEventTableMessage(table), nil

	case typeOutOfService:
		return OutOfServiceMessage, nil

	case typeKeepAlive:
		return KeepAliveMessage, nil

	default:
		return Message{}, fmt.Errorf("wire: unknown message type %d", mt)
	}
}
