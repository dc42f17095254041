// server.go
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"BikeSharing/src/report"
	"BikeSharing/src/storage"
)

// Server 报表查询接口
type Server struct {
	builder  *report.Builder
	logger   *storage.Logger
	dataPath string
	logoPath string
	router   *chi.Mux
}

// New 创建服务并注册路由
func New(builder *report.Builder, logger *storage.Logger, dataPath, logoPath string) *Server {
	s := &Server{
		builder:  builder,
		logger:   logger,
		dataPath: dataPath,
		logoPath: logoPath,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.accessLog)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Get("/logo", s.handleLogo)
	s.router.Get("/logs", s.handleLogs)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/report", s.handleReport)
		r.Get("/summary", s.handleSummary)
		r.Get("/preview", s.handlePreview)
	})
}

// Handler 供 http.Server 和测试使用
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe 阻塞直到 ctx 结束，然后优雅退出
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(fmt.Sprintf("接口服务已启动: %s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("接口服务正在关闭...")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// accessLog 请求日志写入应用日志
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		// 日志流本身不记录，避免自我回环
		if r.URL.Path == "/logs" {
			return
		}
		s.logger.Debug(fmt.Sprintf("%s %s %d %v", r.Method, r.URL.RequestURI(), ww.Status(), time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogo 图片不存在返回 404
func (s *Server) handleLogo(w http.ResponseWriter, r *http.Request) {
	if s.logoPath == "" {
		http.NotFound(w, r)
		return
	}
	if _, err := os.Stat(s.logoPath); err != nil {
		s.logger.Warning(fmt.Sprintf("未找到图片: %s", s.logoPath))
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, s.logoPath)
}

// handleLogs 持续输出实时日志，直到客户端断开
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")

	// 创建日志订阅通道
	logChan := s.logger.Subscribe()
	defer s.logger.Unsubscribe(logChan)

	fmt.Fprint(w, "# 已连接日志流\n")
	flusher.Flush()

	for {
		select {
		case msg, ok := <-logChan:
			if !ok {
				return
			}
			if _, err := fmt.Fprint(w, msg); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}
