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

// UUID is the canonical 35-character rendering of a Miniserver identifier
// (8-4-4-16 hex digits).
//
// Unlike an RFC 4122 UUID, the three leading fields are each independently
// little-endian on the wire: a uuid.UUID (big-endian byte order throughout)
// would render a different string for the same 16 bytes.
type UUID string

// uuidSize is the number of raw bytes a UUID occupies on the wire.
const uuidSize = 16

// decodeUUID reads 16 bytes from b and renders the canonical form.
func decodeUUID(b []byte) (UUID, error) {
	if len(b) < uuidSize {
		return "", fmt.Errorf("wire: short uuid: need %d bytes, got %d", uuidSize, len(b))
	}
	d1 := binary.LittleEndian.Uint32(b[0:4])
	d2 := binary.LittleEndian.Uint16(b[4:6])
	d3 := binary.LittleEndian.Uint16(b[6:8])
	d4 := b[8:16]
	return UUID(fmt.Sprintf("%08x-%04x-%04x-%02x%02x%02x%02x%02x%02x%02x%02x",
		d1, d2, d3, d4[0], d4[1], d4[2], d4[3], d4[4], d4[5], d4[6], d4[7])), nil
}

// encodeUUID renders u back to its 16 raw wire bytes. Used only by tests and
// synthetic fixtures; the engine itself never re-encodes a UUID it received.
func encodeUUID(u UUID) ([]byte, error) {
	var d1 uint32
	var d2, d3 uint16
	var d4 [8]byte
	n, err := fmt.Sscanf(string(u), "%08x-%04x-%04x-%02x%02x%02x%02x%02x%02x%02x%02x",
		&d1, &d2, &d3, &d4[0], &d4[1], &d4[2], &d4[3], &d4[4], &d4[5], &d4[6], &d4[7])
	if err != nil || n != 11 {
		return nil, fmt.Errorf("wire: malformed uuid %q: %w", u, err)
	}
	out := make([]byte, uuidSize)
	binary.LittleEndian.PutUint32(out[0:4], d1)
	binary.LittleEndian.PutUint16(out[4:6], d2)
	binary.LittleEndian.PutUint16(out[6:8], d3)
	copy(out[8:16], d4[:])
	return out, nil
}
