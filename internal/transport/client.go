package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arin/wordpeek/internal/ai"
)

// ErrConnectionLost is delivered when the background drops the channel
// before sending a terminal event.
var ErrConnectionLost = errors.New("connection closed before lookup finished")

// Surface is one UI surface. It owns at most one live session: starting a
// new lookup closes the previous one first.
type Surface struct {
	url    string
	dialer *websocket.Dialer

	mu      sync.Mutex
	current *Session
}

// NewSurface returns a surface that opens sessions against the websocket
// URL of a running daemon, e.g. ws://127.0.0.1:7878/lookup.
func NewSurface(url string) *Surface {
	return &Surface{
		url:    url,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Start closes any live session and opens a new one for req.
func (s *Surface) Start(ctx context.Context, req ai.LookupRequest) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Close()
		s.current = nil
	}

	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", s.url, err)
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(StartLookup(req)); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send lookup: %w", err)
	}
	conn.SetWriteDeadline(time.Time{})

	sess := &Session{
		conn:   conn,
		events: make(chan ai.Event, 16),
		closed: make(chan struct{}),
	}
	go sess.readPump()
	s.current = sess
	return sess, nil
}

// Close tears down the live session, if any.
func (s *Surface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.Close()
		s.current = nil
	}
}

// Session is the UI end of one lookup channel.
type Session struct {
	conn      *websocket.Conn
	events    chan ai.Event
	closed    chan struct{}
	closeOnce sync.Once
}

// Events returns the session's event stream. It is closed after the
// terminal event or when the session is closed locally.
func (s *Session) Events() <-chan ai.Event {
	return s.events
}

// Close abandons the session. No further events are delivered.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = s.conn.Close()
	})
	return err
}

func (s *Session) readPump() {
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.closed:
			default:
				s.deliver(ai.Failed(ErrConnectionLost))
				s.Close()
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		ev, ok := msg.Event()
		if !ok {
			continue
		}
		if !s.deliver(ev) {
			return
		}
		if ev.Terminal() {
			s.Close()
			return
		}
	}
}

func (s *Session) deliver(ev ai.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.closed:
		return false
	}
}
