package preview

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nstogner/diagrammer/pkg/domain"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // The preview binds to localhost by default.
	},
}

type client struct {
	ws   *websocket.Conn
	send chan Frame
	once sync.Once
	done chan struct{}
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// enqueue drops the frame when the client is too slow to keep up. The next
// frame it does receive carries the newer state anyway.
func (c *client) enqueue(f Frame) {
	select {
	case c.send <- f:
	case <-c.done:
	default:
		slog.Debug("Dropping preview frame for slow client")
	}
}

func (s *Server) broadcast(f Frame) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		c.enqueue(f)
	}
}

func (s *Server) handleLiveWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	c := &client{
		ws:   ws,
		send: make(chan Frame, sendBuffer),
		done: make(chan struct{}),
	}
	// Initial sync. Queued under the lock that guards registration so no
	// update can slip between the snapshot and the first broadcast.
	s.mu.Lock()
	sess, a := s.session, s.artifact
	c.send <- Frame{Session: &sess, Artifact: &a}
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	var wg sync.WaitGroup
	wg.Add(1)

	// Writer Loop
	go func() {
		defer wg.Done()
		defer ws.Close()

		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-c.done:
				ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			case f := <-c.send:
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				if err := ws.WriteJSON(f); err != nil {
					slog.Debug("Preview write failed", "error", err)
					return
				}
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	// Reader Loop
	for {
		var msg SubmitRequest
		if err := ws.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				slog.Debug("Preview read ended", "error", err)
			}
			break
		}
		if msg.Requirement == "" || s.submit == nil {
			continue
		}
		// Generation outlives the read; results arrive as frames. Rejected
		// input is not reported by the orchestrator, so answer it here.
		go func(text string) {
			err := s.submit(context.Background(), text)
			if errors.Is(err, domain.ErrInvalidInput) {
				c.enqueue(Frame{Error: &ErrorInfo{Code: domain.ErrorCode(err), Message: err.Error()}})
			}
		}(msg.Requirement)
	}

	c.close()
	wg.Wait()
}
