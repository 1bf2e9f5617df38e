package media

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osa030/melodeck/internal/domain/media"
)

const testSampleRate = 8000

// wavBytes returns a silent 16-bit mono PCM WAV file of length d.
func wavBytes(d time.Duration) []byte {
	samples := int(d.Seconds() * testSampleRate)
	dataLen := samples * 2

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(testSampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(testSampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

func writeWAV(t *testing.T, name string, d time.Duration) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, wavBytes(d), 0o600))
	return p
}

// eventRecorder collects events delivered to a handler.
type eventRecorder struct {
	mu     sync.Mutex
	events []media.EventType
}

func (r *eventRecorder) handle(ev media.EventType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) snapshot() []media.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]media.EventType, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) has(ev media.EventType) bool {
	for _, e := range r.snapshot() {
		if e == ev {
			return true
		}
	}
	return false
}
