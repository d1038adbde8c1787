package client

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/loxone-go/miniserver/wire"
)

// scriptedFrame is one WebSocket frame a fakeTransport replays, in order.
type scriptedFrame struct {
	kind int
	data []byte
}

// fakeTransport is a scripted Transport driven entirely from a fixed list of
// frames, used to exercise the client against canned Miniserver replies
// without a real socket.
type fakeTransport struct {
	mu     sync.Mutex
	frames []scriptedFrame
	i      int
	writes [][]byte
	closed bool
}

func (f *fakeTransport) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.i >= len(f.frames) {
		return 0, nil, io.EOF
	}
	fr := f.frames[f.i]
	f.i++
	return fr.kind, fr.data, nil
}

func (f *fakeTransport) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) lastWrite() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return ""
	}
	return string(f.writes[len(f.writes)-1])
}

// header builds an 8-byte header frame: magic 0x03, type code, info byte,
// reserved byte, little-endian u32 length.
func header(typeCode, info byte, length uint32) []byte {
	b := make([]byte, 8)
	b[0] = 0x03
	b[1] = typeCode
	b[2] = info
	binary.LittleEndian.PutUint32(b[4:8], length)
	return b
}

// textReply appends a header/body frame pair carrying a text message.
func textReply(frames []scriptedFrame, body string) []scriptedFrame {
	frames = append(frames, scriptedFrame{wire.FrameBinary, header(0, 0, uint32(len(body)))})
	frames = append(frames, scriptedFrame{wire.FrameText, []byte(body)})
	return frames
}

// ll builds an {"LL":{"<codeField>":"<code>","value":<value>}} text reply
// body, matching the per-endpoint casing the Miniserver actually sends.
func ll(codeField, code, value string) string {
	return `{"LL":{"` + codeField + `":"` + code + `","value":` + value + `}}`
}
