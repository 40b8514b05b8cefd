package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins; restrict at the reverse proxy in production.
	},
}

const writeWait = 10 * time.Second

// handleStream upgrades GET /api/v1/simulate/{id}/stream to a WebSocket and
// pushes that run's order/log records. Runs execute synchronously inside
// POST /simulate, so by the time a client subscribes the records already
// exist — the handler replays them as a burst of messages and closes,
// which is the documented behavior for small grids (§12.3), not a bug.
// A run still "running" (observed mid-request, a narrow window since
// handleCreateSimulation holds the lock only around status transitions)
// gets a single status message instead.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.RLock()
	run, ok := s.runs[id]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "no such run", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if run.Status == "running" {
		writeWS(conn, WSMessage{Type: "status", Data: map[string]string{"status": "running"}})
		return
	}
	if run.Status == "error" {
		writeWS(conn, WSMessage{Type: "error", Data: map[string]string{"error": run.Err}})
		return
	}

	for col := 0; col < run.Result.Sim.Cols; col++ {
		for _, rec := range run.Result.Sim.Records.Orders(col) {
			if !writeWS(conn, WSMessage{Type: "order_record", Data: rec}) {
				return
			}
		}
		for _, rec := range run.Result.Sim.Records.Logs(col) {
			if !writeWS(conn, WSMessage{Type: "log_record", Data: rec}) {
				return
			}
		}
	}
	writeWS(conn, WSMessage{Type: "done", Data: map[string]string{"run_id": id}})
}

func writeWS(conn *websocket.Conn, msg WSMessage) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("WebSocket write error: %v", err)
		return false
	}
	return true
}

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// handleEvents upgrades GET /api/v1/events to a WebSocket subscribed to the
// hub's broadcast channel — "simulation_complete" notifications for every
// run, not scoped to one id, the generic counterpart to handleStream's
// per-run replay.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &WSClient{hub: s.wsHub, send: make(chan WSMessage, 256)}
	s.wsHub.Register(client)

	go wsWritePump(conn, client)
	go wsReadPump(conn, client)
}

// wsReadPump drains and discards client frames, keeping the connection's
// read deadline alive via pong handling until the client disconnects.
func wsReadPump(conn *websocket.Conn, client *WSClient) {
	defer func() {
		client.hub.Unregister(client)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// wsWritePump pumps hub broadcast messages to the WebSocket connection.
func wsWritePump(conn *websocket.Conn, client *WSClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if !writeWS(conn, msg) {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
