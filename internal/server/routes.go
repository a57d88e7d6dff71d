package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/muurk/watering/internal/logging"
)

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/getInfo", s.handleGetInfo)
			r.Get("/getPorts", s.handleGetPorts)

			r.Get("/checkNow", s.command((Controller).CheckNow))
			r.Get("/ping", s.command((Controller).Ping))
			r.Get("/poll", s.command((Controller).Poll))
			r.Get("/getSettings", s.command((Controller).GetSettings))
			r.Get("/saveSettings", s.command((Controller).SaveSettings))
			r.Get("/getVersion", s.command((Controller).GetVersion))
			r.Get("/pause", s.command((Controller).Pause))
			r.Get("/resume", s.command((Controller).Resume))
			r.Get("/disconnect", s.command((Controller).Disconnect))

			r.Post("/connect", s.handleConnect)
			r.Post("/onoff", s.handleOnOff)
			r.Post("/tempSwitch", s.handleTempSwitch)
			r.Post("/setSettings", s.handleSetSettings)
		})
	})

	if s.config.StaticDir != "" {
		s.mountStatic(s.config.StaticDir)
	}
}

// mountStatic serves the browser UI. Paths without an extension fall back to
// index.html.
func (s *Server) mountStatic(dir string) {
	if _, err := os.Stat(dir); err != nil {
		logging.Warn("Static directory not found, web UI will not be available", zap.String("dir", dir))
		return
	}
	logging.Info("Serving web UI", zap.String("dir", dir))

	fs := http.FileServer(http.Dir(dir))
	s.router.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" || !strings.Contains(filepath.Base(r.URL.Path), ".") {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}

// requestLogger writes one debug line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, status, time.Since(start))
	})
}
