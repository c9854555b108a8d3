// Package wsgate implements the primary session transport: a websocket
// listener that hands every connection to a session.Dispatcher. Grounded
// on gmackie-power-grid-backend's handleGameMonitorWS/wsUpgrader shape
// (the only pack example upgrading a raw net/http handler to a
// websocket.Conn for live game state), generalized from admin monitoring
// to the primary bidirectional participant channel.
package wsgate

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gamearena/internal/domain"
	"gamearena/internal/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// conn adapts a *websocket.Conn to session.Channel. Writes are
// serialized: gorilla/websocket forbids concurrent writers on one
// connection.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) Send(msg any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteJSON(msg)
}

func (c *conn) Close() error {
	return c.ws.Close()
}

// Gateway is the http.Handler that accepts new connections and pumps
// inbound frames to a Dispatcher until the socket closes.
type Gateway struct {
	dispatcher *session.Dispatcher

	stop chan struct{}
}

// New builds a Gateway delivering every connection's frames to dispatcher.
// If idleCheckInterval is positive, New also starts a background sweep
// that calls dispatcher.CheckIdle on that interval and disconnects every
// participant it reports stale, so cfg.SessionIdleTimeoutMs actually
// bounds how long a silent connection is kept open rather than just the
// fixed per-read network deadline below. Call Close to stop the sweep.
func New(dispatcher *session.Dispatcher, idleCheckInterval time.Duration) *Gateway {
	g := &Gateway{dispatcher: dispatcher}
	if idleCheckInterval > 0 {
		g.stop = make(chan struct{})
		go g.sweepIdle(idleCheckInterval)
	}
	return g
}

// Close stops the idle sweep started by New, if any.
func (g *Gateway) Close() {
	if g.stop != nil {
		close(g.stop)
	}
}

func (g *Gateway) sweepIdle(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			for _, id := range g.dispatcher.CheckIdle(now) {
				g.dispatcher.Disconnect(id)
			}
		case <-g.stop:
			return
		}
	}
}

// ServeHTTP upgrades the request, assigns the connection a fresh
// ParticipantID, and reads frames until the peer disconnects or sends
// something the dispatcher closes the channel over.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	id := domain.NewParticipantID()
	g.dispatcher.Connect(id, &conn{ws: ws})
	defer g.dispatcher.Disconnect(id)

	// networkReadDeadline is a generous safety net against a TCP peer that
	// vanishes without a close handshake; it is deliberately much longer
	// than any reasonable SessionIdleTimeoutMs, which is enforced instead
	// by the sweepIdle goroutine calling dispatcher.CheckIdle.
	const networkReadDeadline = 5 * time.Minute
	ws.SetReadDeadline(time.Now().Add(networkReadDeadline))
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		ws.SetReadDeadline(time.Now().Add(networkReadDeadline))
		g.dispatcher.HandleFrame(id, data)
	}
}
