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
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// HashAlg identifies the HMAC digest used for password and token hashing.
// The Miniserver reports which one to use in the getkey2 reply
// (spec §9 design note); there is no third variant on the wire.
type HashAlg int

const (
	HashSHA1 HashAlg = iota
	HashSHA256
)

// ErrUnknownHashAlg is returned by ParseHashAlg for any value other than
// "SHA1" or "SHA256".
var ErrUnknownHashAlg = errors.New("session: unknown hash algorithm")

// ParseHashAlg maps the Miniserver's hashAlg string to a HashAlg.
func ParseHashAlg(s string) (HashAlg, error) {
	switch strings.ToUpper(s) {
	case "SHA1":
		return HashSHA1, nil
	case "SHA256":
		return HashSHA256, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownHashAlg, s)
	}
}

// EncryptCommand AES-256-CBC-encrypts "salt/<hex(s.Salt())>/<cmd>\x00" under
// the session's key and IV, PKCS7-padding the plaintext to the cipher's
// block size (spec §4.2). The salt is the one fixed at NewSession time and
// rendered as lowercase hex, matching the original implementation.
func EncryptCommand(cmd string, s *Session) ([]byte, error) {
	plaintext := []byte("salt/" + hex.EncodeToString(s.salt) + "/" + cmd + "\x00")
	padded := pkcs7Pad(plaintext, aes.BlockSize)

	key := s.Key()
	iv := s.IV()
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("session: new aes cipher: %w", err)
	}

	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(out, padded)
	return out, nil
}

// EncryptCommandWS wraps EncryptCommand's ciphertext the way it must appear
// inside a jdev/sys/<endpoint>/ URL: base64-encoded with no padding, then
// percent-encoded as a URL query component (spec §4.2).
func EncryptCommandWS(endpoint, cmd string, s *Session) (string, error) {
	ciphertext, err := EncryptCommand(cmd, s)
	if err != nil {
		return "", err
	}
	encoded := base64.RawStdEncoding.EncodeToString(ciphertext)
	escaped := url.QueryEscape(encoded)
	return "jdev/sys/" + endpoint + "/" + escaped, nil
}

// pkcs7Pad appends PKCS7 padding so len(out) is a multiple of blockSize.
func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

// HashPassword computes the two-stage password hash the Miniserver expects
// for jdev/sys/getjwt (spec §4.4): first a plain
// digest of "<pwd>:<salt>" rendered as uppercase hex, then HMAC(key,
// "<user>:<passwordHash>") using the algorithm named in the getkey2 reply,
// returned as lowercase hex.
func HashPassword(user, pwd, salt string, key []byte, alg HashAlg) (string, error) {
	var digest []byte
	switch alg {
	case HashSHA1:
		sum := sha1.Sum([]byte(pwd + ":" + salt))
		digest = sum[:]
	case HashSHA256:
		sum := sha256.Sum256([]byte(pwd + ":" + salt))
		digest = sum[:]
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownHashAlg, alg)
	}
	passwordHash := strings.ToUpper(hex.EncodeToString(digest))
	return hashHex(key, user+":"+passwordHash, alg)
}

// HashToken computes HMAC(key, token) using alg for token-based
// authentication (spec §4.5), rendered as lowercase hex.
func HashToken(token string, key []byte, alg HashAlg) (string, error) {
	return hashHex(key, token, alg)
}

func hashHex(key []byte, msg string, alg HashAlg) (string, error) {
	var mac []byte
	switch alg {
	case HashSHA1:
		h := hmac.New(sha1.New, key)
		h.Write([]byte(msg))
		mac = h.Sum(nil)
	case HashSHA256:
		h := hmac.New(sha256.New, key)
		h.Write([]byte(msg))
		mac = h.Sum(nil)
	default:
		return "", fmt.Errorf("%w: %d", ErrUnknownHashAlg, alg)
	}
	return hex.EncodeToString(mac), nil
}

// NewSalt returns a fresh random salt, hex-encoded into command plaintext
// via EncryptCommand. The Miniserver accepts any value here; the original
// implementation uses 2 random bytes.
func NewSalt() ([]byte, error) {
	b := make([]byte, 2)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("session: generate salt: %w", err)
	}
	return b, nil
}
