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

// Package session implements the Miniserver's key-exchange session (C1) and
// the crypto primitives its commands are encrypted and authenticated with
// (C2): RSA-PKCS1v1.5 session-key wrapping, AES-256-CBC command encryption,
// and HMAC-SHA1/SHA256 password and token hashing.
package session

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/pem"
	"errors"
	"fmt"
)

// ErrMissingASN1Block is returned when the certificate's outer ASN.1
// sequence is empty or its last element is not a BIT STRING.
var ErrMissingASN1Block = errors.New("session: asn.1 sequence missing bit-string block")

// ParseCertificate decodes a PEM-encoded block, parses its DER payload as a
// top-level ASN.1 SEQUENCE, and extracts the RSA public key from the LAST
// element of that sequence, which must be a BIT STRING whose content is a
// PKCS#1 RSAPublicKey in DER form (spec §4.1).
//
// This is deliberately not full X.509 certificate parsing: the Miniserver's
// "certificate" is, on the wire, a bare SubjectPublicKeyInfo-shaped
// structure (AlgorithmIdentifier SEQUENCE followed by the key BIT STRING),
// and the source protocol never validates it as a signed certificate chain.
func ParseCertificate(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errors.New("session: invalid PEM data")
	}

	var seq []asn1.RawValue
	if _, err := asn1.Unmarshal(block.Bytes, &seq); err != nil {
		return nil, fmt.Errorf("session: invalid asn.1 sequence: %w", err)
	}
	if len(seq) == 0 {
		return nil, ErrMissingASN1Block
	}

	last := seq[len(seq)-1]
	if last.Class != asn1.ClassUniversal || last.Tag != asn1.TagBitString {
		return nil, ErrMissingASN1Block
	}

	var bits asn1.BitString
	if _, err := asn1.Unmarshal(last.FullBytes, &bits); err != nil {
		return nil, fmt.Errorf("session: invalid bit string: %w", err)
	}

	pub, err := x509.ParsePKCS1PublicKey(bits.Bytes)
	if err != nil {
		return nil, fmt.Errorf("session: invalid pkcs1 public key: %w", err)
	}
	return pub, nil
}
