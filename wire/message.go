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

// Package wire implements the Miniserver frame demultiplexer and the four
// binary event-table codecs: header/length/body frame parsing, and the
// little-endian packed record formats carried in event-table bodies.
package wire

// Message is the tagged union the demultiplexer produces for every logical
// protocol message it assembles from one or more WebSocket frames.
type Message struct {
	kind       messageKind
	text       string     // Text, BinaryText
	binary     []byte     // BinaryFile
	eventTable EventTable // EventTable
}

type messageKind int

const (
	kindText messageKind = iota
	kindBinaryText
	kindBinaryFile
	kindEventTable
	kindOutOfService
	kindKeepAlive
)

// NewTextMessage wraps a text reply body.
func NewTextMessage(s string) Message { return Message{kind: kindText, text: s} }

// NewBinaryTextMessage wraps a text body received in the BinaryFile slot
// (type code 1) — see spec §9, "text reply in BinaryFile slot".
func NewBinaryTextMessage(s string) Message { return Message{kind: kindBinaryText, text: s} }

// NewBinaryFileMessage wraps a raw binary body received in the BinaryFile slot.
func NewBinaryFileMessage(b []byte) Message { return Message{kind: kindBinaryFile, binary: b} }

// NewEventTableMessage wraps a decoded event table.
func NewEventTableMessage(t EventTable) Message { return Message{kind: kindEventTable, eventTable: t} }

// OutOfServiceMessage is the single OutOfServiceIndicator singleton.
var OutOfServiceMessage = Message{kind: kindOutOfService}

// KeepAliveMessage is the single KeepAlive singleton.
var KeepAliveMessage = Message{kind: kindKeepAlive}

// IsText reports whether the message carries a plain text reply and, if so,
// returns its body.
func (m Message) IsText() (string, bool) {
	if m.kind == kindText {
		return m.text, true
	}
	return "", false
}

// IsBinaryText reports whether the message carries a text body delivered in
// the BinaryFile slot (e.g. data/LoxAPP3.json).
func (m Message) IsBinaryText() (string, bool) {
	if m.kind == kindBinaryText {
		return m.text, true
	}
	return "", false
}

// IsBinaryFile reports whether the message carries a raw binary body.
func (m Message) IsBinaryFile() ([]byte, bool) {
	if m.kind == kindBinaryFile {
		return m.binary, true
	}
	return nil, false
}

// IsEventTable reports whether the message is an event table and, if so,
// returns it.
func (m Message) IsEventTable() (EventTable, bool) {
	if m.kind == kindEventTable {
		return m.eventTable, true
	}
	return EventTable{}, false
}

// IsOutOfService reports whether this is the OutOfServiceIndicator message.
func (m Message) IsOutOfService() bool { return m.kind == kindOutOfService }

// IsKeepAlive reports whether this is the KeepAlive message.
func (m Message) IsKeepAlive() bool { return m.kind == kindKeepAlive }

// IsEvent reports whether m belongs to the event stream (routed to the
// subscriber fan-out) as opposed to the reply stream (routed to the pending
// request). KeepAlive and OutOfServiceIndicator belong to neither: the
// request engine swallows them in place (spec §4.4).
func (m Message) IsEvent() bool { return m.kind == kindEventTable }

// EventTableKind identifies which of the four binary record shapes an
// EventTable carries.
type EventTableKind int

const (
	ValueEvents EventTableKind = iota
	TextEvents
	DaytimerEvents
	WeatherEvents
)

// EventTable is a decoded batch of same-kind records from a single body frame.
type EventTable struct {
	Kind      EventTableKind
	Values    []ValueEvent
	Texts     []TextEvent
	Daytimers []DaytimerEvent
	Weathers  []WeatherEvent
}

// ValueEvent is a single numeric state update.
type ValueEvent struct {
	UUID  UUID
	Value float64
}

// TextEvent is a single text state update, carrying its icon UUID.
type TextEvent struct {
	UUID     UUID
	IconUUID UUID
	Text     string
}

// DaytimerEntry is one schedule entry within a DaytimerEvent.
type DaytimerEntry struct {
	Mode         int32
	From         int32
	To           int32
	NeedActivate int32
	Value        float64
}

// DaytimerEvent carries a control's full daytimer schedule.
type DaytimerEvent struct {
	UUID    UUID
	Default float64
	Entries []DaytimerEntry
}

// WeatherEntry is a single forecast entry within a WeatherEvent.
type WeatherEntry struct {
	Timestamp             int32
	WeatherType           int32
	WindDirection         int32
	SolarRadiation        int32
	RelativeHumidity      int32
	Temperature           float64
	PerceivedTemperature  float64
	DewPoint              float64
	Precipitation         float64
	WindSpeed             float64
	BarometricPressure    float64
}

// WeatherEvent carries a location's forecast series.
type WeatherEvent struct {
	UUID       UUID
	LastUpdate uint32
	Entries    []WeatherEntry
}

// StateValue is one entry of the UUID->state snapshot built from event
// tables (spec §3, "State snapshot").
type StateValue struct {
	kind          stateKind
	value         float64
	text          string
	iconUUID      UUID
	daytimer      []DaytimerEntry
	daytimerDef   float64
	weather       []WeatherEntry
	weatherUpdate uint32
}

type stateKind int

const (
	stateValue stateKind = iota
	stateText
	stateDaytimer
	stateWeather
)

func valueState(v float64) StateValue { return StateValue{kind: stateValue, value: v} }

func textState(text string, icon UUID) StateValue {
	return StateValue{kind: stateText, text: text, iconUUID: icon}
}

func daytimerState(entries []DaytimerEntry, def float64) StateValue {
	return StateValue{kind: stateDaytimer, daytimer: entries, daytimerDef: def}
}

func weatherState(entries []WeatherEntry, lastUpdate uint32) StateValue {
	return StateValue{kind: stateWeather, weather: entries, weatherUpdate: lastUpdate}
}

// AsValue returns the numeric value and true if this is a Value state.
func (s StateValue) AsValue() (float64, bool) {
	if s.kind == stateValue {
		return s.value, true
	}
	return 0, false
}

// AsText returns the text and icon UUID and true if this is a Text state.
func (s StateValue) AsText() (string, UUID, bool) {
	if s.kind == stateText {
		return s.text, s.iconUUID, true
	}
	return "", "", false
}

// AsDaytimer returns the schedule entries and default value and true if this
// is a Daytimer state.
func (s StateValue) AsDaytimer() ([]DaytimerEntry, float64, bool) {
	if s.kind == stateDaytimer {
		return s.daytimer, s.daytimerDef, true
	}
	return nil, 0, false
}

// AsWeather returns the forecast entries and last-update timestamp and true
// if this is a Weather state.
func (s StateValue) AsWeather() ([]WeatherEntry, uint32, bool) {
	if s.kind == stateWeather {
		return s.weather, s.weatherUpdate, true
	}
	return nil, 0, false
}

// Flatten reduces an EventTable to its (UUID, StateValue) pairs in wire
// order, per spec §4.6 ("pair ordering follows record order in the body").
func (t EventTable) Flatten() []UUIDState {
	switch t.Kind {
	case ValueEvents:
		out := make([]UUIDState, len(t.Values))
		for i, e := range t.Values {
			out[i] = UUIDState{UUID: e.UUID, State: valueState(e.Value)}
		}
		return out
	case TextEvents:
		out := make([]UUIDState, len(t.Texts))
		for i, e := range t.Texts {
			out[i] = UUIDState{UUID: e.UUID, State: textState(e.Text, e.IconUUID)}
		}
		return out
	case DaytimerEvents:
		out := make([]UUIDState, len(t.Daytimers))
		for i, e := range t.Daytimers {
			out[i] = UUIDState{UUID: e.UUID, State: daytimerState(e.Entries, e.Default)}
		}
		return out
	case WeatherEvents:
		out := make([]UUIDState, len(t.Weathers))
		for i, e := range t.Weathers {
			out[i] = UUIDState{UUID: e.UUID, State: weatherState(e.Entries, e.LastUpdate)}
		}
		return out
	default:
		return nil
	}
}

// UUIDState pairs a control identifier with its latest state, the unit the
// event fan-out (C7) delivers to subscribers and folds into the initial
// snapshot.
type UUIDState struct {
	UUID  UUID
	State StateValue
}
