package net

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"drawoverlay/internal/config"
)

// Server serves the upload endpoint, the mirror socket and the saved
// drawings themselves, so every returned path can be fetched back.
type Server struct {
	cfg    config.Server
	hub    *Hub
	upload *UploadHandler
	mux    *http.ServeMux
}

func NewServer(cfg config.Server) (*Server, error) {
	if err := os.MkdirAll(cfg.PublicDir, 0o755); err != nil {
		return nil, fmt.Errorf("create public dir: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		hub:    NewHub(),
		upload: NewUploadHandler(cfg.PublicDir, cfg.MaxUploadBytes),
		mux:    http.NewServeMux(),
	}
	s.upload.OnSaved = s.hub.Saved

	s.mux.Handle("POST "+cfg.UploadPath, s.upload)
	s.mux.Handle("GET /ws", s.hub)
	s.mux.Handle("GET /", http.FileServer(http.Dir(cfg.PublicDir)))
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Hub() *Hub { return s.hub }

// Run listens on the configured address until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	port := ln.Addr().(*net.TCPAddr).Port
	log := slog.Default().With("component", "server")

	if s.cfg.Advertise {
		md, err := Advertise(s.cfg.Instance, port, s.cfg.UploadPath)
		if err != nil {
			log.Warn("mdns advertisement disabled", "err", err)
		} else {
			defer md.Shutdown()
			log.Info("advertising on local network", "service", serviceType, "instance", s.cfg.Instance)
		}
	}

	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("listening", "addr", ln.Addr().String(), "share", ShareURL(port), "upload", s.cfg.UploadPath, "public_dir", s.cfg.PublicDir)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info("stopped")
	return nil
}
