package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"media-review/internal/framecache"
	"media-review/internal/logging"
	"media-review/internal/metrics"
	"media-review/internal/observer"
	"media-review/internal/otime"
	"media-review/internal/player"
)

const (
	socketWriteWait  = 10 * time.Second
	socketPongWait   = 60 * time.Second
	socketPingPeriod = socketPongWait * 9 / 10

	// socketUpdateInterval caps how often state is pushed; changes in
	// between are coalesced into one message.
	socketUpdateInterval = 33 * time.Millisecond
)

// Player socket event types.
const (
	eventPlayer = "player"
	eventIdle   = "idle"
	eventPong   = "pong"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PlayerEvent is pushed to player socket clients.
type PlayerEvent struct {
	Type   string          `json:"type"`
	Player *PlayerResponse `json:"player,omitempty"`
}

// socketWatch marks the socket dirty whenever the session switches player
// or any value of the current player changes.
type socketWatch struct {
	dirty   atomic.Bool
	mu      sync.Mutex
	session *observer.Subscription
	subs    []*observer.Subscription
}

func (sw *socketWatch) mark() { sw.dirty.Store(true) }

func (sw *socketWatch) attach(p *player.Player) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.detachLocked()
	if p != nil {
		sw.subs = append(sw.subs,
			p.ObserveCurrentTime(func(otime.RationalTime) { sw.mark() }),
			p.ObservePlayback(func(player.Playback) { sw.mark() }),
			p.ObserveLoop(func(player.Loop) { sw.mark() }),
			p.ObserveSpeed(func(float64) { sw.mark() }),
			p.ObserveInOutRange(func(otime.TimeRange) { sw.mark() }),
			p.ObserveVideoLayer(func(int) { sw.mark() }),
			p.ObserveVolume(func(float64) { sw.mark() }),
			p.ObserveMute(func(bool) { sw.mark() }),
			p.ObserveAudioOffset(func(float64) { sw.mark() }),
			p.ObserveCacheInfo(func(framecache.Info) { sw.mark() }),
		)
	}
	sw.mark()
}

func (sw *socketWatch) detachLocked() {
	for _, s := range sw.subs {
		s.Close()
	}
	sw.subs = nil
}

func (sw *socketWatch) close() {
	sw.session.Close()
	sw.mu.Lock()
	sw.detachLocked()
	sw.mu.Unlock()
}

// PlayerSocket upgrades to a WebSocket and pushes the player state on every
// change. Clients may send {"type":"ping"} and receive a pong.
func (h *Handlers) PlayerSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	metrics.WebSocketClients.Inc()
	defer metrics.WebSocketClients.Dec()

	sw := &socketWatch{}
	sw.session = h.session.ObserveCurrent(sw.attach)
	defer sw.close()

	pings := make(chan json.RawMessage, 4)
	readDone := make(chan struct{})
	go readSocket(conn, pings, readDone)

	send := func(v interface{}) error {
		if err := conn.SetWriteDeadline(time.Now().Add(socketWriteWait)); err != nil {
			return err
		}
		return conn.WriteJSON(v)
	}

	updates := time.NewTicker(socketUpdateInterval)
	defer updates.Stop()
	keepalive := time.NewTicker(socketPingPeriod)
	defer keepalive.Stop()

	for {
		select {
		case <-readDone:
			return
		case <-r.Context().Done():
			return
		case data := <-pings:
			if err := send(map[string]interface{}{"type": eventPong, "data": data}); err != nil {
				logging.Debug("WebSocket pong failed: %v", err)
				return
			}
		case <-updates.C:
			if !sw.dirty.Swap(false) {
				continue
			}
			event := PlayerEvent{Type: eventIdle}
			if p := h.session.Player(); p != nil {
				resp := h.playerResponse(p)
				event = PlayerEvent{Type: eventPlayer, Player: &resp}
			}
			if err := send(event); err != nil {
				logging.Debug("WebSocket write failed: %v", err)
				return
			}
		case <-keepalive.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		}
	}
}

// readSocket consumes client messages until the connection fails. Pings
// are handed to the writer since a connection allows only one writer.
func readSocket(conn *websocket.Conn, pings chan<- json.RawMessage, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(4096)
	_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(socketPongWait))
	})

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("WebSocket read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(socketPongWait))
		if messageType != websocket.TextMessage {
			continue
		}

		var msg struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data,omitempty"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Debug("Invalid WebSocket message: %v", err)
			continue
		}
		if msg.Type == "ping" {
			select {
			case pings <- msg.Data:
			default:
			}
		}
	}
}
