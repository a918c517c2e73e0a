package ledvis

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"libdb.so/ledfx/led"
)

// WebSocketConfig configures the WebSocket frame server.
type WebSocketConfig struct {
	// Listen is the address to listen on, such as ":8080". If empty, no
	// server is started and the handler must be mounted elsewhere.
	Listen string `toml:"listen" yaml:"listen"`
	// SendBuf is the number of frames queued per client before the client
	// is considered too slow and disconnected.
	SendBuf int `toml:"send_buf" yaml:"send_buf"`
}

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second

	shutdownWait = 2 * time.Second
)

// WebSocket serves frames to WebSocket clients at /frames. Each frame is a
// single binary message holding three bytes per pixel in red, green, blue
// order.
type WebSocket struct {
	baseOutput
	cfg      WebSocketConfig
	logger   *slog.Logger
	hub      *hub
	upgrader websocket.Upgrader
}

var _ Output = (*WebSocket)(nil)

// NewWebSocket creates a WebSocket output.
func NewWebSocket(cfg WebSocketConfig, logger *slog.Logger) *WebSocket {
	w := &WebSocket{
		cfg:    cfg,
		logger: logger,
		hub:    newHub(logger, cfg.SendBuf),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	w.init()
	return w
}

// Name implements Output.
func (w *WebSocket) Name() string { return "websocket" }

// Handler returns the HTTP handler serving /frames.
func (w *WebSocket) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/frames", w.handleFrames)
	return mux
}

func (w *WebSocket) handleFrames(rw http.ResponseWriter, r *http.Request) {
	conn, err := w.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		w.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	c := newClient(w.hub, conn, r.RemoteAddr, w.logger)
	w.hub.register <- c

	// The pumps outlive the request; the hub closes the connection.
	go c.writePump()
	go c.readPump()
}

// Run implements Output.
func (w *WebSocket) Run(ctx context.Context) error {
	errg, ctx := errgroup.WithContext(ctx)
	errg.Go(func() error {
		w.hub.run(ctx)
		return nil
	})
	errg.Go(func() error {
		return w.broadcastFrames(ctx)
	})
	if w.cfg.Listen != "" {
		errg.Go(func() error {
			return w.serve(ctx)
		})
	}
	return errg.Wait()
}

func (w *WebSocket) broadcastFrames(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.Ready():
		}

		var msg []byte
		w.AcquireFrame(func(frame led.LEDs) {
			msg = append([]byte(nil), frame.AsPixels()...)
		})
		if msg == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case w.hub.broadcast <- msg:
		}
	}
}

func (w *WebSocket) serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              w.cfg.Listen,
		Handler:           w.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	w.logger.Info("serving frames over websocket", "listen", w.cfg.Listen)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "websocket server failed")
	}
	return ctx.Err()
}

// hub tracks connected clients and fans frames out to them. Clients whose
// queue is full are disconnected.
type hub struct {
	logger *slog.Logger

	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	// done is closed once run has returned.
	done chan struct{}

	mu      sync.Mutex
	clients map[*client]struct{}

	sendBuf int
}

func newHub(logger *slog.Logger, sendBuf int) *hub {
	if sendBuf <= 0 {
		sendBuf = 8
	}
	return &hub{
		logger:     logger,
		broadcast:  make(chan []byte, 4),
		register:   make(chan *client, 16),
		unregister: make(chan *client, 16),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		sendBuf:    sendBuf,
	}
}

// run processes hub events until ctx is canceled, then disconnects every
// client.
func (h *hub) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.remove(c, "unregister")

		case msg := <-h.broadcast:
			var slow []*client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.remove(c, "slow_client")
			}
		}
	}
}

// leave unregisters c. It does not block once the hub has stopped.
func (h *hub) leave(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			c.conn.Close()
		}
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *hub) remove(c *client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	if c.conn != nil {
		c.conn.Close()
	}
	close(c.send)

	h.logger.Debug("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
}

type client struct {
	hub  *hub
	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *slog.Logger
}

func newClient(h *hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *client {
	return &client{
		hub:        h,
		conn:       conn,
		send:       make(chan []byte, h.sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

// writePump writes queued frames to the connection. It exits on a write
// error or when the hub closes send.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				c.logWriteError(err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logWriteError(err)
				return
			}
		}
	}
}

func (c *client) logWriteError(err error) {
	if errors.Is(err, websocket.ErrCloseSent) {
		return
	}
	c.logger.Debug("ws writePump exiting", "remote_addr", c.remoteAddr, "error", err)
}

// readPump discards incoming messages so that control frames are handled
// and disconnects are noticed.
func (c *client) readPump() {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				c.logger.Debug("ws client closed", "remote_addr", c.remoteAddr, "code", ce.Code)
			}
			c.hub.leave(c)
			return
		}
	}
}
