package wire

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeUUIDCanonicalForm(t *testing.T) {
	b := []byte{0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10, 0x11,
		0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19}
	u, err := decodeUUID(b)
	require.NoError(t, err)
	require.Equal(t, UUID("0d0c0b0a-0f0e-1110-1213141516171819"), u)
	require.Len(t, string(u), 35)
}

func TestDecodeUUIDShortInput(t *testing.T) {
	_, err := decodeUUID(make([]byte, 15))
	require.Error(t, err)
}

func TestUUIDRoundTrip(t *testing.T) {
	for i := 0; i < 64; i++ {
		b := make([]byte, 16)
		_, err := rand.Read(b)
		require.NoError(t, err)

		u, err := decodeUUID(b)
		require.NoError(t, err)
		require.Len(t, string(u), 35)

		back, err := encodeUUID(u)
		require.NoError(t, err)
		require.True(t, bytes.Equal(b, back))
	}
}
