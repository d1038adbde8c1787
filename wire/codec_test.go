package wire

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeReader replays a fixed sequence of frames, driving the demux against a
// scripted fake transport instead of a live socket.
type fakeReader struct {
	frames []frame
	i      int
}

type frame struct {
	kind int
	data []byte
}

func (f *fakeReader) ReadMessage() (int, []byte, error) {
	if f.i >= len(f.frames) {
		return 0, nil, errClosed
	}
	fr := f.frames[f.i]
	f.i++
	return fr.kind, fr.data, nil
}

var errClosed = &closedErr{}

type closedErr struct{}

func (*closedErr) Error() string { return "fake transport closed" }

func header(typeCode byte, info byte, length uint32) []byte {
	h := make([]byte, 8)
	h[0] = 0x03
	h[1] = typeCode
	h[2] = info
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, length)
	copy(h[4:8], lenBuf)
	return h
}

func le64(f float64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(f))
	return b
}

// S1 — KeepAlive: header only, no body frame consumed.
func TestDemuxKeepAlive(t *testing.T) {
	r := &fakeReader{frames: []frame{
		{FrameBinary, header(6, 0, 0)},
	}}
	d := NewDemux(r)
	msg, err := d.NextMessage()
	require.NoError(t, err)
	require.True(t, msg.IsKeepAlive())
	require.Equal(t, 1, r.i)
}

// S2 — ValueEventTable with a single record.
func TestDemuxValueEventTableSingleRecord(t *testing.T) {
	body := append([]byte{0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10, 0x11,
		0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19}, le64(42.5)...)
	r := &fakeReader{frames: []frame{
		{FrameBinary, header(2, 0, 24)},
		{FrameBinary, body},
	}}
	d := NewDemux(r)
	msg, err := d.NextMessage()
	require.NoError(t, err)
	table, ok := msg.IsEventTable()
	require.True(t, ok)
	require.Equal(t, ValueEvents, table.Kind)
	require.Len(t, table.Values, 1)
	require.Equal(t, UUID("0d0c0b0a-0f0e-1110-1213141516171819"), table.Values[0].UUID)
	require.Equal(t, 42.5, table.Values[0].Value)
}

// S3 — TextEvent with 2-byte padding after a 2-byte string.
func TestDemuxTextEventPadding(t *testing.T) {
	uuidBytes := bytes.Repeat([]byte{0x01}, 16)
	iconBytes := bytes.Repeat([]byte{0x02}, 16)
	var body []byte
	body = append(body, uuidBytes...)
	body = append(body, iconBytes...)
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, 2)
	body = append(body, lenBuf...)
	body = append(body, []byte("hi")...)
	body = append(body, 0, 0) // pad to multiple of 4

	r := &fakeReader{frames: []frame{
		{FrameBinary, header(3, 0, uint32(len(body)))},
		{FrameBinary, body},
	}}
	d := NewDemux(r)
	msg, err := d.NextMessage()
	require.NoError(t, err)
	table, ok := msg.IsEventTable()
	require.True(t, ok)
	require.Equal(t, TextEvents, table.Kind)
	require.Len(t, table.Texts, 1)
	require.Equal(t, "hi", table.Texts[0].Text)
}

func TestDemuxTextEventPaddingAllRemainders(t *testing.T) {
	for _, textLen := range []int{0, 1, 2, 3, 4, 5} {
		text := bytes.Repeat([]byte{'x'}, textLen)
		pad := (4 - textLen%4) % 4

		var body []byte
		body = append(body, bytes.Repeat([]byte{0xAA}, 16)...)
		body = append(body, bytes.Repeat([]byte{0xBB}, 16)...)
		lenBuf := make([]byte, 4)
		binary.LittleEndian.PutUint32(lenBuf, uint32(textLen))
		body = append(body, lenBuf...)
		body = append(body, text...)
		body = append(body, make([]byte, pad)...)
		// second record to prove the cursor landed exactly after the pad
		body = append(body, bytes.Repeat([]byte{0xCC}, 16)...)
		body = append(body, bytes.Repeat([]byte{0xDD}, 16)...)
		zero := make([]byte, 4)
		body = append(body, zero...) // second record's text-length = 0

		r := &fakeReader{frames: []frame{
			{FrameBinary, header(3, 0, uint32(len(body)))},
			{FrameBinary, body},
		}}
		d := NewDemux(r)
		msg, err := d.NextMessage()
		require.NoError(t, err, "textLen=%d", textLen)
		table, _ := msg.IsEventTable()
		require.Len(t, table.Texts, 2, "textLen=%d", textLen)
		require.Equal(t, string(text), table.Texts[0].Text)
		require.Equal(t, "", table.Texts[1].Text)
	}
}

func TestDecodeEventTableRefusesReadPastMsgLen(t *testing.T) {
	// Declares a 24-byte record but only supplies 20 bytes of body.
	short := bytes.Repeat([]byte{0}, 20)
	_, err := decodeEventTable(typeValueEventTable, short, 24)
	require.Error(t, err)
}

func TestDecodeEventTableRejectsNegativeEntriesLength(t *testing.T) {
	var body []byte
	body = append(body, bytes.Repeat([]byte{0}, 16)...) // uuid
	body = append(body, le64(0)...)                      // default
	neg := make([]byte, 4)
	binary.LittleEndian.PutUint32(neg, uint32(int32(-1)))
	body = append(body, neg...)

	_, err := decodeEventTable(typeDaytimerEventTable, body, uint32(len(body)))
	require.Error(t, err)
}

// S6 building block: four single-record tables of distinct kinds.
func TestDecodeAllFourTableKinds(t *testing.T) {
	valueBody := append(bytes.Repeat([]byte{0x01}, 16), le64(1.5)...)
	vt, err := decodeEventTable(typeValueEventTable, valueBody, uint32(len(valueBody)))
	require.NoError(t, err)
	require.Equal(t, ValueEvents, vt.Kind)

	var textBody []byte
	textBody = append(textBody, bytes.Repeat([]byte{0x02}, 16)...)
	textBody = append(textBody, bytes.Repeat([]byte{0x03}, 16)...)
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, 4)
	textBody = append(textBody, lenBuf...)
	textBody = append(textBody, []byte("abcd")...)
	tt, err := decodeEventTable(typeTextEventTable, textBody, uint32(len(textBody)))
	require.NoError(t, err)
	require.Equal(t, TextEvents, tt.Kind)
	require.Equal(t, "abcd", tt.Texts[0].Text)

	var dayBody []byte
	dayBody = append(dayBody, bytes.Repeat([]byte{0x04}, 16)...)
	dayBody = append(dayBody, le64(10)...)
	zero := make([]byte, 4)
	dayBody = append(dayBody, zero...)
	dt, err := decodeEventTable(typeDaytimerEventTable, dayBody, uint32(len(dayBody)))
	require.NoError(t, err)
	require.Equal(t, DaytimerEvents, dt.Kind)

	var weatherBody []byte
	weatherBody = append(weatherBody, bytes.Repeat([]byte{0x05}, 16)...)
	lu := make([]byte, 4)
	binary.LittleEndian.PutUint32(lu, 1234)
	weatherBody = append(weatherBody, lu...)
	weatherBody = append(weatherBody, zero...)
	wt, err := decodeEventTable(typeWeatherEventTable, weatherBody, uint32(len(weatherBody)))
	require.NoError(t, err)
	require.Equal(t, WeatherEvents, wt.Kind)
	require.Equal(t, uint32(1234), wt.Weathers[0].LastUpdate)
}
