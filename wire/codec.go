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
	"math"
)

// cursor is a small bounds-checked reader over an event-table body,
// mirroring the original implementation's use of a byte Cursor whose
// position must advance strictly monotonically up to msg_len (spec §3, §4.3).
type cursor struct {
	buf []byte
	pos uint32
}

func (c *cursor) remaining() uint32 { return uint32(len(c.buf)) - c.pos }

func (c *cursor) need(n uint32) error {
	if c.remaining() < n {
		return fmt.Errorf("wire: record would read past msg_len (need %d, have %d)", n, c.remaining())
	}
	return nil
}

func (c *cursor) readBytes(n uint32) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) readUUID() (UUID, error) {
	b, err := c.readBytes(uuidSize)
	if err != nil {
		return "", err
	}
	return decodeUUID(b)
}

func (c *cursor) readU32() (uint32, error) {
	b, err := c.readBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *cursor) readI32() (int32, error) {
	v, err := c.readU32()
	return int32(v), err
}

func (c *cursor) readF64() (float64, error) {
	b, err := c.readBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// skip advances the cursor by n bytes without interpreting them, used for
// the TextEvent 4-byte alignment pad (spec §3 invariant).
func (c *cursor) skip(n uint32) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// decodeEventTable decodes body into the EventTable matching mt, refusing
// to produce a record that would read past msgLen (spec §4.3).
func decodeEventTable(mt messageType, body []byte, msgLen uint32) (EventTable, error) {
	if uint32(len(body)) < msgLen {
		return EventTable{}, fmt.Errorf("wire: body shorter than declared msg_len (%d < %d)", len(body), msgLen)
	}
	c := &cursor{buf: body[:msgLen]}

	switch mt {
	case typeValueEventTable:
		var events []ValueEvent
		for c.pos < msgLen {
			e, err := decodeValueEvent(c)
			if err != nil {
				return EventTable{}, err
			}
			events = append(events, e)
		}
		if c.pos != msgLen {
			return EventTable{}, fmt.Errorf("wire: value event table did not end exactly at msg_len")
		}
		return EventTable{Kind: ValueEvents, Values: events}, nil

	case typeTextEventTable:
		var events []TextEvent
		for c.pos < msgLen {
			e, err := decodeTextEvent(c)
			if err != nil {
				return EventTable{}, err
			}
			events = append(events, e)
		}
		if c.pos != msgLen {
			return EventTable{}, fmt.Errorf("wire: text event table did not end exactly at msg_len")
		}
		return EventTable{Kind: TextEvents, Texts: events}, nil

	case typeDaytimerEventTable:
		var events []DaytimerEvent
		for c.pos < msgLen {
			e, err := decodeDaytimerEvent(c)
			if err != nil {
				return EventTable{}, err
			}
			events = append(events, e)
		}
		if c.pos != msgLen {
			return EventTable{}, fmt.Errorf("wire: daytimer event table did not end exactly at msg_len")
		}
		return EventTable{Kind: DaytimerEvents, Daytimers: events}, nil

	case typeWeatherEventTable:
		var events []WeatherEvent
		for c.pos < msgLen {
			e, err := decodeWeatherEvent(c)
			if err != nil {
				return EventTable{}, err
			}
			events = append(events, e)
		}
		if c.pos != msgLen {
			return EventTable{}, fmt.Errorf("wire: weather event table did not end exactly at msg_len")
		}
		return EventTable{Kind: WeatherEvents, Weathers: events}, nil

	default:
		return EventTable{}, fmt.Errorf("wire: %d is not an event-table message type", mt)
	}
}

func decodeValueEvent(c *cursor) (ValueEvent, error) {
	u, err := c.readUUID()
	if err != nil {
		return ValueEvent{}, err
	}
	v, err := c.readF64()
	if err != nil {
		return ValueEvent{}, err
	}
	return ValueEvent{UUID: u, Value: v}, nil
}

func decodeTextEvent(c *cursor) (TextEvent, error) {
	u, err := c.readUUID()
	if err != nil {
		return TextEvent{}, err
	}
	icon, err := c.readUUID()
	if err != nil {
		return TextEvent{}, err
	}
	textLen, err := c.readU32()
	if err != nil {
		return TextEvent{}, err
	}
	textBytes, err := c.readBytes(textLen)
	if err != nil {
		return TextEvent{}, err
	}
	text := string(textBytes)
	if pad := (4 - textLen%4) % 4; pad != 0 {
		if err := c.skip(pad); err != nil {
			return TextEvent{}, err
		}
	}
	return TextEvent{UUID: u, IconUUID: icon, Text: text}, nil
}

func decodeDaytimerEvent(c *cursor) (DaytimerEvent, error) {
	u, err := c.readUUID()
	if err != nil {
		return DaytimerEvent{}, err
	}
	def, err := c.readF64()
	if err != nil {
		return DaytimerEvent{}, err
	}
	n, err := c.readI32()
	if err != nil {
		return DaytimerEvent{}, err
	}
	if n < 0 {
		return DaytimerEvent{}, fmt.Errorf("wire: negative daytimer entries-length %d", n)
	}
	entries := make([]DaytimerEntry, 0, n)
	for i := int32(0); i < n; i++ {
		e, err := decodeDaytimerEntry(c)
		if err != nil {
			return DaytimerEvent{}, err
		}
		entries = append(entries, e)
	}
	return DaytimerEvent{UUID: u, Default: def, Entries: entries}, nil
}

func decodeDaytimerEntry(c *cursor) (DaytimerEntry, error) {
	mode, err := c.readI32()
	if err != nil {
		return DaytimerEntry{}, err
	}
	from, err := c.readI32()
	if err != nil {
		return DaytimerEntry{}, err
	}
	to, err := c.readI32()
	if err != nil {
		return DaytimerEntry{}, err
	}
	needActivate, err := c.readI32()
	if err != nil {
		return DaytimerEntry{}, err
	}
	value, err := c.readF64()
	if err != nil {
		return DaytimerEntry{}, err
	}
	return DaytimerEntry{Mode: mode, From: from, To: to, NeedActivate: needActivate, Value: value}, nil
}

func decodeWeatherEvent(c *cursor) (WeatherEvent, error) {
	u, err := c.readUUID()
	if err != nil {
		return WeatherEvent{}, err
	}
	lastUpdate, err := c.readU32()
	if err != nil {
		return WeatherEvent{}, err
	}
	n, err := c.readI32()
	if err != nil {
		return WeatherEvent{}, err
	}
	if n < 0 {
		return WeatherEvent{}, fmt.Errorf("wire: negative weather entries-length %d", n)
	}
	entries := make([]WeatherEntry, 0, n)
	for i := int32(0); i < n; i++ {
		e, err := decodeWeatherEntry(c)
		if err != nil {
			return WeatherEvent{}, err
		}
		entries = append(entries, e)
	}
	return WeatherEvent{UUID: u, LastUpdate: lastUpdate, Entries: entries}, nil
}

func decodeWeatherEntry(c *cursor) (WeatherEntry, error) {
	fields := make([]int32, 5)
	for i := range fields {
		v, err := c.readI32()
		if err != nil {
			return WeatherEntry{}, err
		}
		fields[i] = v
	}
	floats := make([]float64, 6)
	for i := range floats {
		v, err := c.readF64()
		if err != nil {
			return WeatherEntry{}, err
		}
		floats[i] = v
	}
	return WeatherEntry{
		Timestamp:            fields[0],
		WeatherType:          fields[1],
		WindDirection:        fields[2],
		SolarRadiation:       fields[3],
		RelativeHumidity:     fields[4],
		Temperature:          floats[0],
		PerceivedTemperature: floats[1],
		DewPoint:             floats[2],
		Precipitation:        floats[3],
		WindSpeed:            floats[4],
		BarometricPressure:   floats[5],
	}, nil
}
