package relayserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Matthew-Oliver97/StronglyTyped/internal/relay"
)

// ServerConfig holds the WebSocket connection settings.
type ServerConfig struct {
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		WriteTimeout:   10 * time.Second,
		PongTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 16 * 1024,
	}
}

// Server upgrades HTTP connections and pumps frames between clients and
// the hub.
type Server struct {
	hub      *Hub
	cfg      ServerConfig
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, cfg ServerConfig) *Server {
	return &Server{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Relay clients are terminal programs, not browsers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP mux for the daemon: /ws for relay traffic,
// /healthz for probes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(uuid.New().String()[:8])
	log.Info().Str("client", client.id).Str("remote", r.RemoteAddr).Msg("client connected")

	go s.writePump(ws, client)
	s.readPump(ws, client)
}

func (s *Server) readPump(ws *websocket.Conn, c *Client) {
	defer func() {
		s.hub.Drop(c)
		close(c.send)
		ws.Close()
		log.Info().Str("client", c.id).Msg("client disconnected")
	}()

	ws.SetReadLimit(s.cfg.MaxMessageSize)
	ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(s.cfg.PongTimeout))
		return nil
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client", c.id).Msg("read error")
			}
			return
		}
		var f relay.Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Topic == "" {
			continue // malformed frames are discarded silently
		}
		switch f.Op {
		case relay.OpSub:
			s.hub.Subscribe(c, f.Topic)
		case relay.OpUnsub:
			s.hub.Unsubscribe(c, f.Topic)
		case relay.OpPublish:
			s.hub.Publish(f.Topic, f.Payload)
		}
	}
}

func (s *Server) writePump(ws *websocket.Conn, c *Client) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		ws.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if !ok {
				ws.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ListenAndServe runs the daemon until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, srv *Server) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("relayd listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
