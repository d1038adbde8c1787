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
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/loxone-go/miniserver/session"
	"github.com/loxone-go/miniserver/wire"
)

// KeyExchange performs jdev/sys/keyexchange: it generates a fresh session
// key under the Miniserver's RSA public key (decoded from cert, a PEM
// certificate), sends it, and on success advances the connection to
// StateKeyExchanged. The remote key the Miniserver returns is a copy of the
// request, base64-decoded, that callers may use to verify the round trip
// (spec §3).
func (c *Client) KeyExchange(cert string) ([]byte, error) {
	pub, err := session.ParseCertificate(cert)
	if err != nil {
		return nil, fmt.Errorf("client: parse certificate: %w", err)
	}
	sess, err := session.NewSession(pub)
	if err != nil {
		return nil, fmt.Errorf("client: create session: %w", err)
	}

	msg, err := c.sendRecv("jdev/sys/keyexchange/" + sess.Encode())
	if err != nil {
		return nil, err
	}
	body, ok := msg.IsText()
	if !ok {
		return nil, ErrUnexpectedMessageType
	}

	code, value, err := decodeLL(body)
	if err != nil {
		return nil, err
	}
	if err := expectOK("jdev/sys/keyexchange", code); err != nil {
		return nil, err
	}

	encoded, err := decodeStringValue(value)
	if err != nil {
		return nil, err
	}
	remoteKey, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("client: decode keyexchange reply: %w", err)
	}

	c.session = sess
	c.advance(StateKeyExchanged)
	return remoteKey, nil
}

// getKey performs jdev/sys/getkey, returning the hex-encoded key used to
// HMAC-hash a plaintext token (spec §4.5).
func (c *Client) getKey() (string, error) {
	msg, err := c.sendRecv("jdev/sys/getkey")
	if err != nil {
		return "", err
	}
	body, ok := msg.IsText()
	if !ok {
		return "", ErrUnexpectedMessageType
	}
	code, value, err := decodeLL(body)
	if err != nil {
		return "", err
	}
	if err := expectOK("jdev/sys/getkey", code); err != nil {
		return "", err
	}
	return decodeStringValue(value)
}

// getKeySalt performs jdev/sys/getkey2/<user>, returning the per-user
// HMAC key, password salt, and hash algorithm name the Miniserver wants
// used for getjwt (spec §4.4).
func (c *Client) getKeySalt(user string) (key, salt, hashAlg string, err error) {
	msg, err := c.sendRecv("jdev/sys/getkey2/" + user)
	if err != nil {
		return "", "", "", err
	}
	body, ok := msg.IsText()
	if !ok {
		return "", "", "", ErrUnexpectedMessageType
	}
	code, value, err := decodeLL(body)
	if err != nil {
		return "", "", "", err
	}
	if err := expectOK("jdev/sys/getkey2", code); err != nil {
		return "", "", "", err
	}
	m, err := decodeObjectValue(value)
	if err != nil {
		return "", "", "", err
	}
	if key, err = stringField(m, "key"); err != nil {
		return "", "", "", err
	}
	if salt, err = stringField(m, "salt"); err != nil {
		return "", "", "", err
	}
	if hashAlg, err = stringField(m, "hashAlg"); err != nil {
		return "", "", "", err
	}
	return key, salt, hashAlg, nil
}

// GetJWT performs the getkey2 -> hash -> jdev/sys/getjwt round trip (spec
// §4.4), returning the reply's value object verbatim (token, key,
// validUntil, tokenRights, unsecurePass) so callers can adapt it to their
// own token-cache shape without this package pinning that schema.
func (c *Client) GetJWT(user, password string, permission int, uuid, info string) (map[string]any, error) {
	key, salt, hashAlgName, err := c.getKeySalt(user)
	if err != nil {
		return nil, err
	}
	alg, err := session.ParseHashAlg(hashAlgName)
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("client: decode getkey2 key: %w", err)
	}

	hash, err := session.HashPassword(user, password, salt, keyBytes, alg)
	if err != nil {
		return nil, fmt.Errorf("client: hash password: %w", err)
	}

	cmd := fmt.Sprintf("jdev/sys/getjwt/%s/%s/%d/%s/%s", hash, user, permission, uuid, info)
	msg, err := c.sendRecvEnc(cmd)
	if err != nil {
		return nil, err
	}
	body, ok := msg.IsText()
	if !ok {
		return nil, ErrUnexpectedMessageType
	}
	// jdev/sys/getjwt is the one endpoint whose reply carries a stray "\r"
	// before the closing brace in the original implementation.
	code, value, err := decodeLL(strings.ReplaceAll(body, "\r", ""))
	if err != nil {
		return nil, err
	}
	if err := expectOK("jdev/sys/getjwt", code); err != nil {
		return nil, err
	}
	return decodeObjectValue(value)
}

// Authenticate performs authwithtoken for an already-issued JWT
// (spec §4.5): it HMACs the token under the key from getkey, extracts the
// user from the token's unverified payload, and advances the connection to
// StateAuthenticated on success.
func (c *Client) Authenticate(token string) (map[string]any, error) {
	key, err := c.getKey()
	if err != nil {
		return nil, err
	}
	keyBytes, err := hex.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("client: decode getkey key: %w", err)
	}

	user, err := jwtUser(token)
	if err != nil {
		return nil, err
	}

	hash, err := session.HashToken(token, keyBytes, session.HashSHA1)
	if err != nil {
		return nil, fmt.Errorf("client: hash token: %w", err)
	}

	cmd := fmt.Sprintf("authwithtoken/%s/%s", hash, user)
	msg, err := c.sendRecvEnc(cmd)
	if err != nil {
		return nil, err
	}
	body, ok := msg.IsText()
	if !ok {
		return nil, ErrUnexpectedMessageType
	}
	code, value, err := decodeLL(body)
	if err != nil {
		return nil, err
	}
	if err := expectOK("authwithtoken", code); err != nil {
		return nil, err
	}
	result, err := decodeObjectValue(value)
	if err != nil {
		return nil, err
	}

	c.advance(StateAuthenticated)
	return result, nil
}

// GetLoxAPP3 fetches the structure file at data/LoxAPP3.json, returning its
// raw JSON body for the caller to decode into its own structure type (spec
// §4.7 — the structure schema itself is out of scope here).
func (c *Client) GetLoxAPP3() ([]byte, error) {
	msg, err := c.sendRecv("data/LoxAPP3.json")
	if err != nil {
		return nil, err
	}
	body, ok := msg.IsBinaryText()
	if !ok {
		return nil, ErrUnexpectedMessageType
	}
	return []byte(body), nil
}

// GetLoxAPP3Timestamp performs jdev/sps/LoxAPPversion3, returning the
// structure file's last-modified timestamp, used to decide whether a fresh
// GetLoxAPP3 fetch is needed.
func (c *Client) GetLoxAPP3Timestamp() (string, error) {
	msg, err := c.sendRecv("jdev/sps/LoxAPPversion3")
	if err != nil {
		return "", err
	}
	body, ok := msg.IsText()
	if !ok {
		return "", ErrUnexpectedMessageType
	}
	code, value, err := decodeLL(body)
	if err != nil {
		return "", err
	}
	if err := expectOK("jdev/sps/LoxAPPversion3", code); err != nil {
		return "", err
	}
	return decodeStringValue(value)
}

// EnableStatusUpdate performs jdev/sps/enablebinstatusupdate and then folds
// the first four event tables the Miniserver sends — its full initial
// snapshot, spec §4.6 — into a UUID->state map, handing the live stream off
// to Events() for everything after.
func (c *Client) EnableStatusUpdate() (map[wire.UUID]wire.StateValue, error) {
	msg, err := c.sendRecv("jdev/sps/enablebinstatusupdate")
	if err != nil {
		return nil, err
	}
	body, ok := msg.IsText()
	if !ok {
		return nil, ErrUnexpectedMessageType
	}
	code, value, err := decodeLL(body)
	if err != nil {
		return nil, err
	}
	if err := expectOK("jdev/sps/enablebinstatusupdate", code); err != nil {
		return nil, err
	}
	ack, err := decodeStringValue(value)
	if err != nil {
		return nil, err
	}
	if ack != "1" {
		return nil, fmt.Errorf("client: unexpected enablebinstatusupdate ack %q", ack)
	}

	snapshot := make(map[wire.UUID]wire.StateValue)
	for i := 0; i < 4; i++ {
		select {
		case us, ok := <-c.events:
			if !ok {
				return nil, c.lastReadErr()
			}
			snapshot[us.UUID] = us.State
		case <-c.closed:
			return nil, ErrClosed
		}
	}

	c.advance(StateSubscribed)
	return snapshot, nil
}

// SendIOCmd performs jdev/sps/io/<control>/<cmd>, the mutation endpoint used
// to drive a control (spec §4.8).
func (c *Client) SendIOCmd(control wire.UUID, cmd string) error {
	msg, err := c.sendRecv(fmt.Sprintf("jdev/sps/io/%s/%s", control, cmd))
	if err != nil {
		return err
	}
	body, ok := msg.IsText()
	if !ok {
		return ErrUnexpectedMessageType
	}
	code, value, err := decodeLL(body)
	if err != nil {
		return err
	}
	if err := expectOK("jdev/sps/io", code); err != nil {
		return err
	}
	ack, err := decodeStringValue(value)
	if err != nil {
		return err
	}
	if ack != "1" {
		return fmt.Errorf("client: unexpected io command ack %q", ack)
	}
	return nil
}

// jwtUser extracts the "user" claim from a JWT's unverified payload segment
// (spec §4.5 design note — the client never validates the signature, only
// the Miniserver does, so the token is parsed without a keyfunc).
func jwtUser(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadJWT, err)
	}
	user, ok := claims["user"].(string)
	if !ok {
		return "", fmt.Errorf("%w: missing user claim", ErrBadJWT)
	}
	return user, nil
}
