package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wolfman30/easygopharm/internal/observability/metrics"
	"github.com/wolfman30/easygopharm/pkg/logging"
)

const (
	StatusOnline          = "System Online"
	StatusDisconnected    = "Disconnected"
	StatusConnectionError = "Connection Error"

	captureQueueSize = 32
)

// Conn is the browser side of the bridge. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ClientMessage is a JSON control message sent by the browser.
type ClientMessage struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// OutboundMessage is pushed to the browser as JSON text.
type OutboundMessage struct {
	Type     string   `json:"type"`
	Status   string   `json:"status,omitempty"`
	ID       string   `json:"id,omitempty"`
	Data     string   `json:"data,omitempty"`
	StartAt  *float64 `json:"startAt,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
	IDs      []string `json:"ids,omitempty"`
	Lines    []string `json:"lines,omitempty"`
	Speaking *bool    `json:"speaking,omitempty"`
}

// Bridge relays one browser connection to one Live session.
type Bridge struct {
	client     Conn
	session    LiveSession
	scheduler  *PlaybackScheduler
	transcript *TranscriptBuffer
	metrics    *metrics.VoiceMetrics
	logger     *logging.Logger
	elapsed    func() time.Duration
	newID      func() string

	writeMu   sync.Mutex
	frames    chan []byte
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewBridge pairs a browser connection with an open Live session.
func NewBridge(client Conn, session LiveSession, m *metrics.VoiceMetrics, logger *logging.Logger) *Bridge {
	if logger == nil {
		logger = logging.Default()
	}
	started := time.Now()
	return &Bridge{
		client:     client,
		session:    session,
		scheduler:  NewPlaybackScheduler(),
		transcript: NewTranscriptBuffer(TranscriptLines),
		metrics:    m,
		logger:     logger,
		elapsed:    func() time.Duration { return time.Since(started) },
		newID:      uuid.NewString,
		frames:     make(chan []byte, captureQueueSize),
		done:       make(chan struct{}),
	}
}

// Run pumps audio both ways until either side ends, then tears down.
func (b *Bridge) Run(ctx context.Context) error {
	b.sendStatus(StatusOnline)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		b.capture()
	}()
	go func() {
		defer wg.Done()
		b.forward(ctx)
	}()
	go func() {
		defer wg.Done()
		b.receive()
	}()

	select {
	case <-ctx.Done():
	case <-b.done:
	}
	err := b.Close()
	wg.Wait()
	return err
}

// capture reads browser frames and control messages.
func (b *Bridge) capture() {
	defer b.stop()
	for {
		kind, data, err := b.client.ReadMessage()
		if err != nil {
			if !b.closing() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Debug("voice client read ended", "error", err)
			}
			return
		}
		switch kind {
		case websocket.BinaryMessage:
			pcm, err := Float32ToPCM16(data)
			if err != nil {
				b.logger.Warn("dropping malformed capture frame", "error", err)
				continue
			}
			select {
			case b.frames <- pcm:
			case <-b.done:
				return
			}
		case websocket.TextMessage:
			var msg ClientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "ended":
				speaking := b.scheduler.Ended(msg.ID)
				if !speaking {
					b.write(OutboundMessage{Type: "speaking", Speaking: &speaking})
				}
			case "stop":
				return
			}
		}
	}
}

// forward sends converted frames to the session one at a time, in order.
func (b *Bridge) forward(ctx context.Context) {
	for {
		select {
		case <-b.done:
			return
		case pcm := <-b.frames:
			if err := b.session.SendAudio(ctx, pcm); err != nil {
				if !b.closing() {
					b.logger.Warn("live session send failed", "error", err)
					b.sendStatus(StatusConnectionError)
				}
				b.stop()
				return
			}
			b.metrics.ObserveFrame("inbound")
		}
	}
}

// receive handles Live server events until the session ends.
func (b *Bridge) receive() {
	defer b.stop()
	for {
		evt, err := b.session.Receive()
		if err != nil {
			if !b.closing() {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					b.sendStatus(StatusDisconnected)
				} else {
					b.logger.Warn("live session receive failed", "error", err)
					b.sendStatus(StatusConnectionError)
				}
			}
			return
		}
		b.handleEvent(evt)
	}
}

func (b *Bridge) handleEvent(evt ServerEvent) {
	if evt.Transcript != "" {
		b.write(OutboundMessage{Type: "transcript", Lines: b.transcript.Push(evt.Transcript)})
	}
	for _, chunk := range evt.Audio {
		frag := b.scheduler.Schedule(b.newID(), PCM16Duration(chunk, OutputSampleRate), b.elapsed())
		start := frag.StartAt.Seconds()
		duration := frag.Duration.Seconds()
		b.write(OutboundMessage{
			Type:     "audio",
			ID:       frag.ID,
			Data:     base64.StdEncoding.EncodeToString(chunk),
			StartAt:  &start,
			Duration: &duration,
		})
		b.metrics.ObserveFrame("outbound")
	}
	if evt.Interrupted {
		b.write(OutboundMessage{Type: "interrupted", IDs: b.scheduler.Interrupt()})
		b.metrics.ObserveInterruption()
	}
}

func (b *Bridge) sendStatus(status string) {
	b.write(OutboundMessage{Type: "status", Status: status})
}

func (b *Bridge) write(msg OutboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.client.WriteMessage(websocket.TextMessage, data); err != nil && !b.closing() {
		b.logger.Debug("voice client write failed", "type", msg.Type, "error", err)
	}
}

func (b *Bridge) stop() {
	b.closeOnce.Do(b.teardown)
}

func (b *Bridge) closing() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Close tears the bridge down. Every step runs even if an earlier one fails;
// the errors are joined.
func (b *Bridge) Close() error {
	b.stop()
	return b.closeErr
}

func (b *Bridge) teardown() {
	close(b.done)

	var errs []error
	if err := b.client.Close(); err != nil {
		errs = append(errs, err)
	}

	b.scheduler.Interrupt()

	if b.session != nil {
		if err := b.session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closeErr = errors.Join(errs...)
}
