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
	"encoding/json"
	"fmt"
)

// llEnvelope is the reply shape every jdev/jdev-like command returns:
// {"LL":{"Code"|"code":"<status>", "value": <T>}}. The Miniserver is
// inconsistent about the casing of the status field across endpoints (spec
// §9 design note), so decodeLL checks both.
type llEnvelope struct {
	LL map[string]json.RawMessage `json:"LL"`
}

// decodeLL parses a text reply body into its status code and raw value.
// jdev/sys/getjwt's reply carries a stray "\r" before the closing brace, a
// quirk of that one endpoint in the original implementation; callers strip
// it before calling decodeLL rather than this function stripping it for
// every endpoint.
func decodeLL(body string) (code string, value json.RawMessage, err error) {
	var env llEnvelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return "", nil, fmt.Errorf("client: decode LL envelope: %w", err)
	}
	if env.LL == nil {
		return "", nil, ErrMissingEnvelope
	}

	raw, ok := env.LL["Code"]
	if !ok {
		raw, ok = env.LL["code"]
	}
	if !ok {
		return "", nil, missingFieldError("LL.Code")
	}
	if err := json.Unmarshal(raw, &code); err != nil {
		return "", nil, fmt.Errorf("client: decode LL.Code: %w", err)
	}

	return code, env.LL["value"], nil
}

// expectOK returns a *StatusError if code isn't the single success status
// the Miniserver ever reports ("200").
func expectOK(endpoint, code string) error {
	if code != "200" {
		return &StatusError{Endpoint: endpoint, Code: code}
	}
	return nil
}

// decodeStringValue unmarshals a plain string LL.value (e.g. getkey,
// LoxAPPversion3).
func decodeStringValue(value json.RawMessage) (string, error) {
	if value == nil {
		return "", missingFieldError("LL.value")
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", fmt.Errorf("client: decode LL.value: %w", err)
	}
	return s, nil
}

// decodeObjectValue unmarshals an object LL.value (e.g. getkey2, getjwt,
// authenticate) into a generic map, preserving every field the Miniserver
// sent even when the caller only reads a few of them.
func decodeObjectValue(value json.RawMessage) (map[string]any, error) {
	if value == nil {
		return nil, missingFieldError("LL.value")
	}
	var m map[string]any
	if err := json.Unmarshal(value, &m); err != nil {
		return nil, fmt.Errorf("client: decode LL.value: %w", err)
	}
	return m, nil
}

// stringField reads a required string field out of a decoded LL.value object.
func stringField(m map[string]any, field string) (string, error) {
	v, ok := m[field]
	if !ok {
		return "", missingFieldError(field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("client: field %s is not a string", field)
	}
	return s, nil
}
