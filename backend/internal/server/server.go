// Package server serves the monitor page and its WebSocket feed.
package server

import (
	"context"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/soar/freightteleop/backend/internal/hub"
)

// Config is the monitor section of the configuration.
type Config struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
	QRCode  bool   `mapstructure:"qr_code" yaml:"qr_code"`
}

type Server struct {
	hub         *hub.Hub
	broadcaster *hub.Broadcaster
	page        []byte
	addr        string
	logger      golog.Logger
	httpServer  *http.Server
	listener    net.Listener
}

// New builds the server. The index page is read from frontendFS and
// minified once here.
func New(h *hub.Hub, b *hub.Broadcaster, frontendFS fs.FS, addr string, logger golog.Logger) (*Server, error) {
	raw, err := fs.ReadFile(frontendFS, "index.html")
	if err != nil {
		return nil, errors.Wrap(err, "read monitor page")
	}
	page, err := MinifyPage(raw)
	if err != nil {
		return nil, err
	}
	logger.Debugw("monitor page minified", "from", len(raw), "to", len(page))
	return &Server{
		hub:         h,
		broadcaster: b,
		page:        page,
		addr:        addr,
		logger:      logger,
	}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handleWebSocket(s.hub, s.broadcaster, s.logger))
	mux.HandleFunc("/healthz", handleHealth(s.hub))
	mux.HandleFunc("/", handlePage(s.page))
	return mux
}

// Listen binds the configured address. It is separate from Serve so the
// caller can learn the bound address before serving.
func (s *Server) Listen() (net.Addr, error) {
	l, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", s.addr)
	}
	s.listener = l
	return l.Addr(), nil
}

// Serve handles requests until Shutdown. Listen must have succeeded.
func (s *Server) Serve() error {
	if s.listener == nil {
		return errors.New("server: Serve called before Listen")
	}
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Infow("HTTP server listening", "addr", s.listener.Addr().String())
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down HTTP server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
