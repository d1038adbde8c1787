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

package session

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Session holds the AES-256 key material generated for one connection, the
// RSA-wrapped form sent to the Miniserver in jdev/sys/keyexchange (spec §3),
// and the salt used to decorrelate every encrypted command sent over that
// connection. It is created before the exchange and is read-only for the
// lifetime of the connection once the server has acknowledged it (spec §5).
type Session struct {
	aesKey            [32]byte
	aesIV             [16]byte
	salt              []byte
	wrappedSessionKey []byte
}

// NewSession generates fresh AES-256 key and IV material, a fresh command
// salt, and wraps "<hex(aesKey)>:<hex(aesIV)>" under pub using RSA-PKCS1v1.5,
// matching the plaintext layout the Miniserver expects on the other end of
// the exchange. The salt is generated once per session and reused by every
// EncryptCommand call against it, matching the original implementation.
func NewSession(pub *rsa.PublicKey) (*Session, error) {
	s := &Session{}
	if _, err := rand.Read(s.aesKey[:]); err != nil {
		return nil, fmt.Errorf("session: generate aes key: %w", err)
	}
	if _, err := rand.Read(s.aesIV[:]); err != nil {
		return nil, fmt.Errorf("session: generate aes iv: %w", err)
	}
	salt, err := NewSalt()
	if err != nil {
		return nil, fmt.Errorf("session: generate salt: %w", err)
	}
	s.salt = salt

	plaintext := hex.EncodeToString(s.aesKey[:]) + ":" + hex.EncodeToString(s.aesIV[:])
	wrapped, err := rsa.EncryptPKCS1v15(rand.Reader, pub, []byte(plaintext))
	if err != nil {
		return nil, fmt.Errorf("session: wrap session key: %w", err)
	}
	s.wrappedSessionKey = wrapped
	return s, nil
}

// Encode returns the unpadded standard-alphabet base64 encoding of the
// wrapped session key, the exact value sent as the jdev/sys/keyexchange
// command argument.
func (s *Session) Encode() string {
	return base64.RawStdEncoding.EncodeToString(s.wrappedSessionKey)
}

// Key returns the session's AES-256 key.
func (s *Session) Key() [32]byte { return s.aesKey }

// IV returns the session's AES CBC initialization vector.
func (s *Session) IV() [16]byte { return s.aesIV }

// Salt returns the session's fixed command salt, generated once at
// NewSession time and reused for every subsequent encrypted command.
func (s *Session) Salt() []byte { return s.salt }
