package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"notecast/internal/api"
	"notecast/internal/config"
	"notecast/internal/logging"
	"notecast/internal/pipeline"
	"notecast/internal/services"
)

const maxRequestBody = 1 << 20

type apiServer struct {
	bind        string
	frontendDir string
	logger      *slog.Logger
	daemon      *Daemon
	files       *api.FilesService

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	s := &apiServer{
		bind:        strings.TrimSpace(cfg.Paths.APIBind),
		frontendDir: strings.TrimSpace(cfg.Paths.FrontendDir),
		logger:      logging.NewComponentLogger(logger, "api-server"),
		daemon:      d,
		files:       api.NewFilesService(d.store),
	}
	s.handler = s.routes(cfg)
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Transcript requests hold the connection for the whole pipeline.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *apiServer) routes(cfg *config.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestID)
	r.Use(accessLog(s.logger))

	r.Route("/api", func(r chi.Router) {
		r.Use(cors)
		r.Use(bearerAuth(cfg.Paths.APIToken))
		r.Post("/transcript", s.handleTranscript)
		r.Get("/files/{videoID}", s.handleFiles)
		r.Get("/download/{videoID}/{kind}", s.handleDownload)
		r.Get("/status", s.handleStatus)
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			s.writeJSON(w, http.StatusNotFound, api.ErrorResponse{Detail: "Not Found", Kind: "not_found"})
		})
	})

	if cfg.Metrics.Enabled && s.daemon.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.daemon.metrics.Handler())
	}

	if s.frontendDir != "" {
		assets := http.FileServer(http.Dir(filepath.Join(s.frontendDir, "assets")))
		r.Handle("/assets/*", http.StripPrefix("/assets/", assets))
	}
	r.Get("/*", s.handleFrontend)
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil || s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "HTTP requests are no longer served"),
			)
		}
	}()

	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "api_listening"),
	)
	return nil
}

func (s *apiServer) stop() {
	if s == nil || s.listener == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var req api.TranscriptRequest
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := decoder.Decode(&req); err != nil {
		s.writeError(w, r, services.Wrap(services.ErrInvalidInput, "api", "decode", "request body must be JSON", err))
		return
	}
	// A started pipeline runs to completion even if the client disconnects.
	ctx := context.WithoutCancel(r.Context())
	result, err := s.daemon.pipeline.Run(ctx, pipeline.Request{
		URL:            req.YoutubeURL,
		TargetLanguage: req.TargetLanguage,
		ModelSize:      req.ModelSize,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromResult(result))
}

func (s *apiServer) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.files.List(chi.URLParam(r, "videoID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, files)
}

func (s *apiServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	target, err := s.files.Download(chi.URLParam(r, "videoID"), chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	file, err := os.Open(target.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = services.Wrap(services.ErrNotFound, "files", "download", "File not found", nil)
		} else {
			err = services.Wrap(services.ErrStorage, "files", "download", "open artifact", err)
		}
		s.writeError(w, r, err)
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(w, r, services.Wrap(services.ErrStorage, "files", "download", "stat artifact", err))
		return
	}
	w.Header().Set("Content-Type", target.MediaType)
	w.Header().Set("Content-Disposition", "attachment; filename="+target.FileName)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, target.FileName, info.ModTime(), file)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleFrontend(w http.ResponseWriter, r *http.Request) {
	if s.frontendDir == "" {
		s.writeJSON(w, http.StatusNotFound, api.ErrorResponse{Detail: "front-end bundle not configured", Kind: "not_found"})
		return
	}
	if name := path.Clean("/" + r.URL.Path); name != "/" {
		candidate := filepath.Join(s.frontendDir, filepath.FromSlash(name))
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			http.ServeFile(w, r, candidate)
			return
		}
	}
	index := filepath.Join(s.frontendDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		s.writeJSON(w, http.StatusNotFound, api.ErrorResponse{Detail: "index.html not found", Kind: "not_found"})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	http.ServeFile(w, r, index)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := services.HTTPStatus(err)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logger, "request failed", "api_request_failed",
			logging.Error(err),
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
		)
	} else {
		logger.Info("request rejected",
			logging.String("path", r.URL.Path),
			logging.Int("status", status),
			logging.String("reason", err.Error()),
		)
	}
	s.writeJSON(w, status, api.FromError(err))
}
