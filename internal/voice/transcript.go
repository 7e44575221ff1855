package voice

import "sync"

// TranscriptLines is how many transcription lines the caller sees.
const TranscriptLines = 5

// TranscriptBuffer keeps the most recent output transcription lines.
type TranscriptBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

// NewTranscriptBuffer creates a buffer holding at most max lines.
func NewTranscriptBuffer(max int) *TranscriptBuffer {
	if max <= 0 {
		max = TranscriptLines
	}
	return &TranscriptBuffer{max: max}
}

// Push appends a line, evicting the oldest, and returns a snapshot.
func (b *TranscriptBuffer) Push(line string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = append([]string(nil), b.lines[len(b.lines)-b.max:]...)
	}
	return append([]string(nil), b.lines...)
}

// Lines returns a snapshot in push order.
func (b *TranscriptBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.lines...)
}
