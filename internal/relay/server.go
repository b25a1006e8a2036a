package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"CollabBoard/internal/export"
)

// Banner is the plaintext liveness response served on plain HTTP requests to /.
const Banner = "WebSocket server is running..."

// Options tune a Server. Zero values fall back to sensible defaults.
type Options struct {
	SendBuffer      int
	PingInterval    time.Duration
	MaxMessageBytes int64
	Logger          *slog.Logger
}

// Server exposes a Hub over HTTP and websockets.
type Server struct {
	hub             *Hub
	upgrader        websocket.Upgrader
	sendBuffer      int
	pingInterval    time.Duration
	maxMessageBytes int64
	log             *slog.Logger
}

// NewServer creates a Server for hub.
func NewServer(hub *Hub, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	return &Server{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients are served from a different origin and the board has no auth.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sendBuffer:      opts.SendBuffer,
		pingInterval:    opts.PingInterval,
		maxMessageBytes: opts.MaxMessageBytes,
		log:             opts.Logger,
	}
}

// Handler returns the relay's HTTP routes wrapped in access logging.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.accessLog)

	r.Methods(http.MethodGet).Path("/").HandlerFunc(s.root)
	r.Methods(http.MethodGet).Path("/ws").HandlerFunc(s.ServeWS)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.healthz)
	r.Methods(http.MethodGet).Path("/snapshot").HandlerFunc(s.snapshot)
	r.Methods(http.MethodGet).Path("/export.pdf").HandlerFunc(s.exportPDF)
	return r
}

func (s *Server) accessLog(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, writer, request)
		s.log.Info("handled", "method", request.Method, "url", request.URL.String(), "duration", m.Duration, "status", m.Code)
	})
}

// root upgrades websocket requests and answers everything else with Banner,
// so one URL serves both browsers and liveness probes.
func (s *Server) root(writer http.ResponseWriter, request *http.Request) {
	if websocket.IsWebSocketUpgrade(request) {
		s.ServeWS(writer, request)
		return
	}
	writer.Header().Set("Content-Type", "text/plain")
	_, _ = writer.Write([]byte(Banner))
}

// ServeWS upgrades the request and runs the connection until it closes.
func (s *Server) ServeWS(writer http.ResponseWriter, request *http.Request) {
	conn, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		s.log.Error("failed to upgrade", "err", err)
		return
	}

	p := NewPeer(s.sendBuffer)
	if err := s.hub.Register(p); err != nil {
		s.log.Error("failed to register peer", "err", err)
		_ = conn.Close()
		return
	}
	s.serveConn(conn, p)
}

func (s *Server) healthz(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "text/plain")
	_, _ = writer.Write([]byte("ok"))
}

func (s *Server) snapshot(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(s.hub.Store().Snapshot()); err != nil {
		s.log.Error("failed to write snapshot", "err", err)
	}
}

func (s *Server) exportPDF(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "application/pdf")
	writer.Header().Set("Content-Disposition", `attachment; filename="collab-board.pdf"`)
	if err := export.WritePDF(writer, s.hub.Store().Snapshot()); err != nil {
		s.log.Error("failed to export board", "err", err)
	}
}
