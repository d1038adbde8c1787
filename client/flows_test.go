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
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/asn1"
	"encoding/base64"
	"encoding/binary"
	"encoding/pem"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/loxone-go/miniserver/wire"
)

// certPEM builds a PEM block shaped like the Miniserver's "certificate",
// mirroring session.certPEM's construction so ParseCertificate accepts it.
func certPEM(t *testing.T, pub *rsa.PublicKey) string {
	t.Helper()
	der := x509.MarshalPKCS1PublicKey(pub)

	type seqOfTwo struct {
		Dummy asn1.RawValue
		Key   asn1.BitString
	}
	seq := seqOfTwo{
		Dummy: asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagOctetString, Bytes: []byte{0x01}},
		Key:   asn1.BitString{Bytes: der, BitLength: len(der) * 8},
	}
	der2, err := asn1.Marshal(seq)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der2}))
}

func newTestRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return priv
}

// TestKeyExchangeSuccess exercises S4: a valid certificate, a 200 reply
// carrying the server's own key, and the resulting state transition.
func TestKeyExchangeSuccess(t *testing.T) {
	priv := newTestRSAKey(t)
	cert := certPEM(t, &priv.PublicKey)

	remote := []byte("remote-session-key")
	reply := ll("Code", "200", `"`+base64.StdEncoding.EncodeToString(remote)+`"`)

	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, reply)
	c := newClient(ft)

	require.Equal(t, StateConnected, c.State())

	got, err := c.KeyExchange(cert)
	require.NoError(t, err)
	require.Equal(t, remote, got)
	require.Equal(t, StateKeyExchanged, c.State())

	require.Len(t, ft.writes, 1)
	require.Contains(t, string(ft.writes[0]), "jdev/sys/keyexchange/")
}

// TestKeyExchangeFailureStatusCode exercises S5: a well-formed envelope
// reporting a non-200 status leaves the connection in StateConnected.
func TestKeyExchangeFailureStatusCode(t *testing.T) {
	priv := newTestRSAKey(t)
	cert := certPEM(t, &priv.PublicKey)

	reply := ll("Code", "400", `""`)
	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, reply)
	c := newClient(ft)

	_, err := c.KeyExchange(cert)
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "400", statusErr.Code)
	require.Equal(t, StateConnected, c.State())
}

func TestKeyExchangeRejectsBadCertificate(t *testing.T) {
	ft := &fakeTransport{}
	c := newClient(ft)
	_, err := c.KeyExchange("not a certificate")
	require.Error(t, err)
	require.Equal(t, StateConnected, c.State())
}

// TestEnableStatusUpdateSnapshotThenStream exercises S6: the first four
// event tables fold into the returned snapshot and every later one arrives
// on Events() in order.
func TestEnableStatusUpdateSnapshotThenStream(t *testing.T) {
	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, ll("Code", "200", `"1"`))

	uuids := []string{
		"00000001-0000-0000-0000000000000000",
		"00000002-0000-0000-0000000000000000",
		"00000003-0000-0000-0000000000000000",
		"00000004-0000-0000-0000000000000000",
		"00000005-0000-0000-0000000000000000",
	}
	for _, u := range uuids {
		ft.frames = append(ft.frames, valueEventTableFrames(t, u, 1.5)...)
	}

	c := newClient(ft)
	snapshot, err := c.EnableStatusUpdate()
	require.NoError(t, err)
	require.Len(t, snapshot, 4)
	require.Equal(t, StateSubscribed, c.State())

	select {
	case us := <-c.Events():
		require.Equal(t, wire.UUID(uuids[4]), us.UUID)
		v, ok := us.State.AsValue()
		require.True(t, ok)
		require.Equal(t, 1.5, v)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the fifth event table")
	}
}

func TestEnableStatusUpdateRejectsNonOneAck(t *testing.T) {
	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, ll("Code", "200", `"0"`))
	c := newClient(ft)
	_, err := c.EnableStatusUpdate()
	require.Error(t, err)
}

func TestGetLoxAPP3ReturnsRawBody(t *testing.T) {
	ft := &fakeTransport{}
	body := `{"lastModified":"2026-01-01"}`
	ft.frames = append(ft.frames,
		scriptedFrame{wire.FrameBinary, header(1, 0, uint32(len(body)))},
		scriptedFrame{wire.FrameText, []byte(body)},
	)
	c := newClient(ft)

	got, err := c.GetLoxAPP3()
	require.NoError(t, err)
	require.JSONEq(t, body, string(got))
}

func TestGetLoxAPP3TimestampSuccess(t *testing.T) {
	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, ll("Code", "200", `"2026-01-01 00:00:00"`))
	c := newClient(ft)

	ts, err := c.GetLoxAPP3Timestamp()
	require.NoError(t, err)
	require.Equal(t, "2026-01-01 00:00:00", ts)
}

func TestSendIOCmdSuccess(t *testing.T) {
	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, ll("Code", "200", `"1"`))
	c := newClient(ft)

	err := c.SendIOCmd("00000001-0000-0000-0000-000000000000", "On")
	require.NoError(t, err)
	require.Contains(t, ft.lastWrite(), "jdev/sps/io/00000001-0000-0000-0000-000000000000/On")
}

func TestSendIOCmdRejectsNonOneAck(t *testing.T) {
	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, ll("Code", "200", `"0"`))
	c := newClient(ft)

	err := c.SendIOCmd("00000001-0000-0000-0000-000000000000", "On")
	require.Error(t, err)
}

// TestGetJWTRequiresSessionForFinalStep exercises the getkey2 round trip
// succeeding but the encrypted getjwt step failing because KeyExchange was
// never performed (spec §4.4: getjwt is always sent encrypted).
func TestGetJWTRequiresSessionForFinalStep(t *testing.T) {
	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, ll("code", "200", `{"key":"deadbeef","salt":"ab12","hashAlg":"SHA1"}`))
	c := newClient(ft)

	_, err := c.GetJWT("admin", "hunter2", 2, "deadbeef-uuid", "go-client")
	require.ErrorIs(t, err, ErrNoSession)
	require.Len(t, ft.writes, 1) // only the getkey2 request was ever sent
}

// TestAuthenticateSuccess exercises authwithtoken end to end: key
// exchange establishes the session, getkey supplies the HMAC key, and the
// user embedded in the token (never the caller) goes into the command.
func TestAuthenticateSuccess(t *testing.T) {
	priv := newTestRSAKey(t)
	cert := certPEM(t, &priv.PublicKey)

	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, ll("Code", "200", `"`+base64.StdEncoding.EncodeToString([]byte("remote-key"))+`"`))
	ft.frames = textReply(ft.frames, ll("Code", "200", `"deadbeef"`))
	ft.frames = textReply(ft.frames, ll("code", "200", `{"token":"jwt-ok"}`))
	c := newClient(ft)

	_, err := c.KeyExchange(cert)
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user": "admin"}).
		SignedString([]byte("does-not-matter-the-client-never-checks-it"))
	require.NoError(t, err)

	result, err := c.Authenticate(token)
	require.NoError(t, err)
	require.Equal(t, "jwt-ok", result["token"])
	require.Equal(t, StateAuthenticated, c.State())

	require.Contains(t, ft.lastWrite(), "jdev/sys/enc/")
}

func TestAuthenticateRejectsMalformedToken(t *testing.T) {
	priv := newTestRSAKey(t)
	cert := certPEM(t, &priv.PublicKey)

	ft := &fakeTransport{}
	ft.frames = textReply(ft.frames, ll("Code", "200", `"`+base64.StdEncoding.EncodeToString([]byte("remote-key"))+`"`))
	ft.frames = textReply(ft.frames, ll("Code", "200", `"deadbeef"`))
	c := newClient(ft)

	_, err := c.KeyExchange(cert)
	require.NoError(t, err)

	_, err = c.Authenticate("not-a-jwt")
	require.ErrorIs(t, err, ErrBadJWT)
}

// valueEventTableFrames builds the header/body frame pair for a
// single-record ValueEventTable carrying one (uuid, value) pair.
func valueEventTableFrames(t *testing.T, uuidStr string, value float64) []scriptedFrame {
	t.Helper()
	body := encodeValueEvent(t, uuidStr, value)
	return []scriptedFrame{
		{wire.FrameBinary, header(2, 0, uint32(len(body)))},
		{wire.FrameBinary, body},
	}
}

// encodeValueEvent packs one ValueEvent record: a 16-byte wire UUID (each
// of the first three fields little-endian, per wire.UUID's doc comment)
// followed by an 8-byte little-endian float64.
func encodeValueEvent(t *testing.T, uuidStr string, value float64) []byte {
	t.Helper()
	var d1 uint32
	var d2, d3 uint16
	var d4 [8]byte
	n, err := fmt.Sscanf(uuidStr, "%08x-%04x-%04x-%02x%02x%02x%02x%02x%02x%02x%02x",
		&d1, &d2, &d3, &d4[0], &d4[1], &d4[2], &d4[3], &d4[4], &d4[5], &d4[6], &d4[7])
	require.NoError(t, err)
	require.Equal(t, 11, n)

	out := make([]byte, 24)
	binary.LittleEndian.PutUint32(out[0:4], d1)
	binary.LittleEndian.PutUint16(out[4:6], d2)
	binary.LittleEndian.PutUint16(out[6:8], d3)
	copy(out[8:16], d4[:])
	binary.LittleEndian.PutUint64(out[16:24], math.Float64bits(value))
	return out
}
