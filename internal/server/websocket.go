package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/huzeyfeaktas/python-editor/internal/runner"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the fronting proxy authenticates
	},
}

// wsIncoming is a message from the client.
type wsIncoming struct {
	Type     string  `json:"type"` // execute or cancel
	Language string  `json:"language,omitempty"`
	Code     string  `json:"code,omitempty"`
	Timeout  float64 `json:"timeout,omitempty"`
	RunID    string  `json:"run_id,omitempty"`
}

// wsOutgoing is a message to the client.
type wsOutgoing struct {
	Type    string         `json:"type"` // started, result, cancelled or error
	RunID   string         `json:"run_id,omitempty"`
	Content string         `json:"content,omitempty"`
	Result  *runner.Result `json:"result,omitempty"`
}

// wsConn serializes writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
	s    *Server
}

func (c *wsConn) send(v wsOutgoing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(v)
	if err != nil {
		c.s.log.Error("websocket marshal error", "error", err)
		return
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.s.log.Debug("websocket write error", "error", err)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	// Runs are cancelled when the client goes away, then awaited.
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := &wsConn{conn: conn, s: s}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket read error", "error", err)
			}
			return
		}
		var msg wsIncoming
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(wsOutgoing{Type: "error", Content: "invalid message: " + err.Error()})
			continue
		}

		switch msg.Type {
		case "execute":
			req := executeRequest{Language: msg.Language, Code: msg.Code, Timeout: msg.Timeout}
			if strings.TrimSpace(req.Code) == "" || req.Timeout < 0 {
				c.send(wsOutgoing{Type: "error", Content: "invalid execute message"})
				continue
			}
			run, runCtx, end := s.runs.Begin(ctx, owner, req.language())
			c.send(wsOutgoing{Type: "started", RunID: run.ID})

			wg.Add(1)
			go func() {
				defer wg.Done()
				defer end()
				result := s.engine.Execute(runCtx, run.Language, req.Code, req.budget())
				if runCtx.Err() != nil && ctx.Err() == nil {
					c.send(wsOutgoing{Type: "cancelled", RunID: run.ID, Result: &result})
					return
				}
				c.send(wsOutgoing{Type: "result", RunID: run.ID, Result: &result})
			}()

		case "cancel":
			if !s.runs.Cancel(msg.RunID, owner) {
				c.send(wsOutgoing{Type: "error", RunID: msg.RunID, Content: "run not found"})
			}

		default:
			c.send(wsOutgoing{Type: "error", Content: "invalid message"})
		}
	}
}
