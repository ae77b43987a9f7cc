package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DHX/config"
	"DHX/core/mixer"
	"DHX/logger"
	"DHX/storage"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server 组合路由、WebSocket Hub 和混音器
type Server struct {
	cfg      *config.Config
	api      *APIHandler
	hub      *Hub
	upgrader websocket.Upgrader
	router   *mux.Router
}

// New 创建服务器并注册路由
func New(cfg *config.Config, api *APIHandler, hub *Hub) *Server {
	s := &Server{
		cfg: cfg,
		api: api,
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	h := s.api
	authed := requireToken(s.cfg.JWTSecret)

	router := mux.NewRouter()
	router.Use(corsMiddleware, loggingMiddleware)

	router.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws", s.WebSocketHandler).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", h.StateHandler).Methods(http.MethodGet)
	api.HandleFunc("/library", h.LibraryHandler).Methods(http.MethodGet)
	api.HandleFunc("/auth/token", h.TokenHandler).Methods(http.MethodPost)

	api.HandleFunc("/upload", authed(h.UploadHandler)).Methods(http.MethodPost)

	// 队列
	api.HandleFunc("/queue", authed(h.EnqueueHandler)).Methods(http.MethodPost)
	api.HandleFunc("/queue/fill", authed(h.FillDecksHandler)).Methods(http.MethodPost)
	api.HandleFunc("/queue/{id}", authed(h.RemoveFromQueueHandler)).Methods(http.MethodDelete)
	api.HandleFunc("/queue/{id}/position", authed(h.MoveInQueueHandler)).Methods(http.MethodPut)

	// 唱盘
	api.HandleFunc("/decks/{pos}/play", authed(h.DeckActionHandler((*mixer.Coordinator).Play))).Methods(http.MethodPost)
	api.HandleFunc("/decks/{pos}/pause", authed(h.DeckActionHandler((*mixer.Coordinator).Pause))).Methods(http.MethodPost)
	api.HandleFunc("/decks/{pos}/toggle", authed(h.DeckActionHandler((*mixer.Coordinator).Toggle))).Methods(http.MethodPost)
	api.HandleFunc("/decks/{pos}/active", authed(h.DeckActionHandler((*mixer.Coordinator).SetActiveDeck))).Methods(http.MethodPost)
	api.HandleFunc("/decks/{pos}/return", authed(h.ReturnToQueueHandler)).Methods(http.MethodPost)
	api.HandleFunc("/decks/{pos}/load", authed(h.LoadOnDeckHandler)).Methods(http.MethodPost)

	// 混音
	api.HandleFunc("/mixer/crossfader", authed(h.valueHandler((*mixer.Coordinator).SetCrossfader))).Methods(http.MethodPost)
	api.HandleFunc("/mixer/master", authed(h.valueHandler((*mixer.Coordinator).SetMasterVolume))).Methods(http.MethodPost)
	api.HandleFunc("/tracks/next", authed(h.NextTrackHandler)).Methods(http.MethodPost)
	api.HandleFunc("/tracks/prev", authed(h.PrevTrackHandler)).Methods(http.MethodPost)
	api.HandleFunc("/drop", authed(h.DropHandler)).Methods(http.MethodPost)

	// 点歌
	api.HandleFunc("/request", authed(h.RequestTrackHandler)).Methods(http.MethodPost)
	api.HandleFunc("/request/cancel", authed(h.CancelRequestHandler)).Methods(http.MethodPost)
	api.HandleFunc("/pending/confirm", authed(h.ConfirmPendingHandler)).Methods(http.MethodPost)
	api.HandleFunc("/pending/cancel", authed(h.CancelPendingHandler)).Methods(http.MethodPost)

	// 文件服务
	router.HandleFunc(storage.MediaRoute+"{key:.+}", h.MediaHandler).Methods(http.MethodGet, http.MethodHead)
	uploadsFileServer := http.FileServer(http.Dir(s.cfg.UploadDir))
	router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", uploadsFileServer))

	return router
}

// WebSocketHandler 升级连接并订阅会话快照
func (s *Server) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}
	s.hub.Attach(context.Background(), conn)
}

// Start 初始化全部组件并启动 HTTP 服务，直到收到中断信号
func Start(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	// 设置服务器超时
	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      app.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", logger.String("addr", cfg.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}
