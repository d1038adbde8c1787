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
	"errors"
	"fmt"
)

// Sentinel errors returned by the request engine (spec §7).
var (
	// ErrNotConnected reports a request made without a connection. No Client
	// method in this package returns it: a Client only exists after Connect,
	// and requests after Close fail with ErrClosed.
	ErrNotConnected = errors.New("client: not connected")

	// ErrNoSession is returned by any operation that requires an encrypted
	// command (authenticate, getjwt) before KeyExchange has completed.
	ErrNoSession = errors.New("client: no session established, key exchange required")

	// ErrMissingEnvelope is returned when a text reply has no top-level "LL" object.
	ErrMissingEnvelope = errors.New("client: reply missing LL envelope")

	// ErrMissingField is returned when an expected field is absent from a
	// decoded LL envelope or its value object.
	ErrMissingField = errors.New("client: reply missing field")

	// ErrUnexpectedMessageType is returned when a reply arrives in a frame
	// shape the calling operation didn't ask for (e.g. binary where text was
	// expected).
	ErrUnexpectedMessageType = errors.New("client: unexpected reply message type")

	// ErrClosed is returned by any operation attempted after Close.
	ErrClosed = errors.New("client: connection closed")

	// ErrBadJWT is returned when a JWT's payload segment cannot be decoded.
	ErrBadJWT = errors.New("client: malformed jwt")
)

// StatusError reports a non-200 LL.Code/LL.code status returned by the
// Miniserver for an otherwise well-formed reply (spec §7).
type StatusError struct {
	Endpoint string
	Code     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client: %s returned status %s", e.Endpoint, e.Code)
}

// missingFieldError names the specific field that was absent, wrapping
// ErrMissingField so callers can still errors.Is against it.
func missingFieldError(field string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, field)
}
