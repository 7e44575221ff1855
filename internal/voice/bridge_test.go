package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/easygopharm/pkg/logging"
)

type frame struct {
	kind int
	data []byte
}

type fakeClient struct {
	inbound  chan frame
	closed   chan struct{}
	once     sync.Once
	closeErr error

	mu      sync.Mutex
	written []OutboundMessage
}

func newFakeClient() *fakeClient {
	return &fakeClient{inbound: make(chan frame, 16), closed: make(chan struct{})}
}

func (c *fakeClient) ReadMessage() (int, []byte, error) {
	select {
	case f := <-c.inbound:
		return f.kind, f.data, nil
	case <-c.closed:
		return 0, nil, errors.New("use of closed connection")
	}
}

func (c *fakeClient) WriteMessage(_ int, data []byte) error {
	var msg OutboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, msg)
	return nil
}

func (c *fakeClient) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.closeErr
}

func (c *fakeClient) messages(typ string) []OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []OutboundMessage
	for _, m := range c.written {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

type fakeSession struct {
	events   chan ServerEvent
	closed   chan struct{}
	once     sync.Once
	closeErr error
	sendErr  error

	mu   sync.Mutex
	sent [][]byte
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan ServerEvent, 16), closed: make(chan struct{})}
}

func (s *fakeSession) SendAudio(_ context.Context, pcm []byte) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, pcm)
	return nil
}

func (s *fakeSession) Receive() (ServerEvent, error) {
	select {
	case evt := <-s.events:
		return evt, nil
	case <-s.closed:
		return ServerEvent{}, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (s *fakeSession) Close() error {
	s.once.Do(func() { close(s.closed) })
	return s.closeErr
}

func (s *fakeSession) sentFrames() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.sent...)
}

func startBridge(t *testing.T, client *fakeClient, session *fakeSession) (*Bridge, <-chan error) {
	t.Helper()
	b := NewBridge(client, session, nil, logging.Discard())
	b.elapsed = func() time.Duration { return 0 }
	n := 0
	b.newID = func() string {
		n++
		return fmt.Sprintf("frag-%d", n)
	}
	errCh := make(chan error, 1)
	go func() { errCh <- b.Run(context.Background()) }()
	return b, errCh
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestBridge_ForwardsCaptureInOrder(t *testing.T) {
	client := newFakeClient()
	session := newFakeSession()
	b, errCh := startBridge(t, client, session)

	for i := 1; i <= 5; i++ {
		client.inbound <- frame{kind: websocket.BinaryMessage, data: floatFrame(float32(i) / 10)}
	}
	client.inbound <- frame{kind: websocket.BinaryMessage, data: []byte{1, 2, 3}}

	waitFor(t, func() bool { return len(session.sentFrames()) == 5 })
	for i, pcm := range session.sentFrames() {
		assert.Equal(t, []int16{int16(float32(i+1) / 10 * 32768)}, pcmSamples(pcm))
	}

	require.NoError(t, b.Close())
	require.NoError(t, <-errCh)
	require.NotEmpty(t, client.messages("status"))
	assert.Equal(t, StatusOnline, client.messages("status")[0].Status)
}

func TestBridge_SchedulesAndInterruptsPlayback(t *testing.T) {
	client := newFakeClient()
	session := newFakeSession()
	b, errCh := startBridge(t, client, session)

	chunk := make([]byte, 4800)
	session.events <- ServerEvent{Audio: [][]byte{chunk, chunk, chunk}}
	waitFor(t, func() bool { return len(client.messages("audio")) == 3 })

	audio := client.messages("audio")
	assert.InDelta(t, 0.0, *audio[0].StartAt, 1e-9)
	assert.InDelta(t, 0.1, *audio[1].StartAt, 1e-9)
	assert.InDelta(t, 0.2, *audio[2].StartAt, 1e-9)
	assert.InDelta(t, 0.1, *audio[2].Duration, 1e-9)

	client.inbound <- frame{kind: websocket.TextMessage, data: []byte(`{"type":"ended","id":"frag-1"}`)}
	waitFor(t, func() bool { return !contains(b.scheduler, "frag-1") })

	session.events <- ServerEvent{Interrupted: true}
	waitFor(t, func() bool { return len(client.messages("interrupted")) == 1 })
	assert.Equal(t, []string{"frag-2", "frag-3"}, client.messages("interrupted")[0].IDs)

	session.events <- ServerEvent{Audio: [][]byte{chunk}}
	waitFor(t, func() bool { return len(client.messages("audio")) == 4 })
	assert.InDelta(t, 0.0, *client.messages("audio")[3].StartAt, 1e-9)

	require.NoError(t, b.Close())
	require.NoError(t, <-errCh)
}

func contains(s *PlaybackScheduler, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.pending {
		if p == id {
			return true
		}
	}
	return false
}

func TestBridge_TranscriptKeepsFiveLines(t *testing.T) {
	client := newFakeClient()
	session := newFakeSession()
	b, errCh := startBridge(t, client, session)

	for i := 1; i <= 7; i++ {
		session.events <- ServerEvent{Transcript: fmt.Sprintf("line %d", i)}
	}
	waitFor(t, func() bool { return len(client.messages("transcript")) == 7 })
	last := client.messages("transcript")[6]
	assert.Equal(t, []string{"line 3", "line 4", "line 5", "line 6", "line 7"}, last.Lines)

	require.NoError(t, b.Close())
	<-errCh
}

func TestBridge_SessionEndReportsDisconnected(t *testing.T) {
	client := newFakeClient()
	session := newFakeSession()
	_, errCh := startBridge(t, client, session)

	waitFor(t, func() bool { return len(client.messages("status")) == 1 })
	require.NoError(t, session.Close())
	require.NoError(t, <-errCh)

	statuses := client.messages("status")
	require.Len(t, statuses, 2)
	assert.Equal(t, StatusDisconnected, statuses[1].Status)
}

func TestBridge_CloseAttemptsEveryStep(t *testing.T) {
	client := newFakeClient()
	client.closeErr = errors.New("client close failed")
	session := newFakeSession()
	session.closeErr = errors.New("session close failed")
	b, errCh := startBridge(t, client, session)

	err := b.Close()
	require.Error(t, err)
	assert.ErrorIs(t, err, client.closeErr)
	assert.ErrorIs(t, err, session.closeErr)
	assert.ErrorIs(t, <-errCh, session.closeErr)

	assert.Equal(t, err, b.Close(), "second close reports the same result")
}

func TestBridge_SendFailureTearsDown(t *testing.T) {
	client := newFakeClient()
	session := newFakeSession()
	session.sendErr = errors.New("socket reset")
	_, errCh := startBridge(t, client, session)

	client.inbound <- frame{kind: websocket.BinaryMessage, data: floatFrame(0.1)}
	require.NoError(t, <-errCh)

	statuses := client.messages("status")
	require.NotEmpty(t, statuses)
	assert.Equal(t, StatusConnectionError, statuses[len(statuses)-1].Status)
}
