package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/LeJamon/goEscrow/internal/api"
	"github.com/LeJamon/goEscrow/internal/core/tx"
)

const (
	// streamBuffer is how many events a subscriber may fall behind before it
	// is dropped
	streamBuffer = 64

	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxStreamMessage = 512
)

// Stream pushes applied transactions to websocket subscribers.
// It implements tx.Observer.
type Stream struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool

	log *logrus.Entry
}

type subscriber struct {
	conn    *websocket.Conn
	account *solana.PublicKey
	send    chan []byte
	done    chan struct{}
	once    sync.Once
}

func (sub *subscriber) stop() {
	sub.once.Do(func() { close(sub.done) })
}

func (sub *subscriber) wants(affected []solana.PublicKey) bool {
	if sub.account == nil {
		return true
	}
	for _, k := range affected {
		if k.Equals(*sub.account) {
			return true
		}
	}
	return false
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{
		upgrader: websocket.Upgrader{
			// The stream is read-only and unauthenticated like the rest of the API
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
		log:  logrus.WithFields(logrus.Fields{"module": "stream"}),
	}
}

// Subscribers returns the number of connected subscribers.
func (s *Stream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// TransactionApplied broadcasts committed transactions. Rejected submissions
// are not streamed.
func (s *Stream) TransactionApplied(_ context.Context, _ *tx.Transaction, result *tx.ApplyResult, _ time.Duration) {
	if result == nil || !result.Applied {
		return
	}
	raw, err := json.Marshal(api.NewSubmitResponse(result))
	if err != nil {
		s.log.WithError(err).Warn("failed to encode stream event")
		return
	}
	affected := result.Metadata.AffectedAccounts()

	s.mu.Lock()
	defer s.mu.Unlock()
	for sub := range s.subs {
		if !sub.wants(affected) {
			continue
		}
		select {
		case sub.send <- raw:
		default:
			s.log.WithField("remote", sub.conn.RemoteAddr().String()).Warn("dropping slow stream subscriber")
			s.removeLocked(sub)
		}
	}
}

// Close disconnects every subscriber and refuses new ones.
func (s *Stream) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for sub := range s.subs {
		s.removeLocked(sub)
	}
	return nil
}

func (s *Stream) add(sub *subscriber) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.subs[sub] = struct{}{}
	return true
}

func (s *Stream) remove(sub *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(sub)
}

func (s *Stream) removeLocked(sub *subscriber) {
	delete(s.subs, sub)
	sub.stop()
}

// serve upgrades the request and blocks until the subscriber goes away.
// A nil account subscribes to every transaction.
func (s *Stream) serve(w http.ResponseWriter, r *http.Request, account *solana.PublicKey) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	sub := &subscriber{
		conn:    conn,
		account: account,
		send:    make(chan []byte, streamBuffer),
		done:    make(chan struct{}),
	}
	if !s.add(sub) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	s.log.WithField("remote", conn.RemoteAddr().String()).Debug("stream subscriber connected")

	go s.writePump(sub)
	s.readPump(sub)
}

// readPump discards client messages and notices disconnects.
func (s *Stream) readPump(sub *subscriber) {
	defer s.remove(sub)

	sub.conn.SetReadLimit(maxStreamMessage)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.WithError(err).Debug("stream read failed")
			}
			return
		}
	}
}

// writePump owns the connection: it is the only writer and closes it.
func (s *Stream) writePump(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case <-sub.done:
			_ = sub.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
			return
		case msg := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.WithError(err).Debug("stream send failed")
				s.remove(sub)
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.remove(sub)
				return
			}
		}
	}
}
