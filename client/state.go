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

// ConnState is a position in the one-way state machine a connection moves
// through: Connected -> KeyExchanged -> Authenticated -> Subscribed (spec
// §4.6). The engine never regresses a connection to an earlier state; a
// dropped connection is surfaced as an error and the caller reconnects.
type ConnState int32

const (
	StateConnected ConnState = iota
	StateKeyExchanged
	StateAuthenticated
	StateSubscribed
)

// String renders the state the way metrics.ConnectionState's doc comment
// enumerates them.
func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateKeyExchanged:
		return "key_exchanged"
	case StateAuthenticated:
		return "authenticated"
	case StateSubscribed:
		return "subscribed"
	default:
		return "unknown"
	}
}
