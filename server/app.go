package server

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"DHX/cache"
	"DHX/config"
	"DHX/core/analysis"
	"DHX/core/deck"
	"DHX/core/ingest"
	"DHX/core/mixer"
	"DHX/core/resolver"
	"DHX/db"
	"DHX/logger"
	"DHX/model"
	"DHX/repository"
	"DHX/storage"
)

// App 运行中的全部组件
type App struct {
	Server *Server
	Mixer  *mixer.Coordinator
	Hub    *Hub

	cancel  context.CancelFunc
	closers []func() error
}

// Close 停止混音器和 Hub，并释放外部连接
func (a *App) Close() {
	a.cancel()
	<-a.Mixer.Done()
	a.Hub.Stop()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", logger.ErrorField(err))
		}
	}
}

// OpenStore MinIO 已配置时使用 MinIO，否则使用本地目录
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	if cfg.MinioEnabled() {
		return storage.NewMinioStore(ctx, cfg)
	}
	return storage.NewLocalStore(cfg.UploadDir)
}

// Build 按配置连接外部服务并组装混音器
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	runCtx, cancel := context.WithCancel(ctx)
	app := &App{cancel: cancel}
	fail := func(err error) (*App, error) {
		cancel()
		for i := len(app.closers) - 1; i >= 0; i-- {
			_ = app.closers[i]()
		}
		return nil, err
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("failed to open storage: %w", err))
	}

	var analysisOpts []analysis.Option
	var session *cache.SessionCache
	if cfg.RedisEnabled() {
		if err := cache.ConnectRedis(cfg); err != nil {
			return fail(err)
		}
		app.closers = append(app.closers, cache.CloseRedis)
		analysisOpts = append(analysisOpts, analysis.WithCache(cache.NewAnalysisCache()))
		session = cache.NewSessionCache()
	}

	var library repository.AnalysisRepository
	if cfg.DBEnabled() {
		if err := db.ConnectGormDB(cfg); err != nil {
			return fail(err)
		}
		app.closers = append(app.closers, db.CloseGormDB)
		if err := db.Migrate(); err != nil {
			return fail(err)
		}
		library = repository.NewGormAnalysisRepository(db.GormDB)
	}

	analyzer := analysis.NewService(analysis.NewChainDecoder(cfg.FFmpegPath), analysisOpts...)

	mixerOpts := []mixer.Option{mixer.WithAnalyzer(analyzer)}
	if cfg.ResolverURL != "" {
		manager := resolver.NewManager()
		manager.Register(resolver.NewHTTPResolver("http", cfg.ResolverURL, cfg.ResolverTimeout))
		mixerOpts = append(mixerOpts, mixer.WithResolver(manager))
	}

	factory := deck.ClockFactory(cfg.ProgressInterval, sourceProber(cfg))
	app.Mixer = mixer.New(mixer.Config{
		MasterVolume:   cfg.MasterVolume,
		ConfirmSeconds: cfg.ConfirmSeconds,
		ConfirmTick:    mixer.DefaultConfig().ConfirmTick,
	}, factory, mixerOpts...)

	go func() {
		if err := app.Mixer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("mixer loop exited", logger.ErrorField(err))
		}
	}()

	app.Hub = NewHub()
	go app.Hub.Run()

	listener := app.Hub.Publish
	if session != nil {
		listener = fanOut(runCtx, app.Hub, session)
	}
	if err := app.Mixer.OnChange(listener); err != nil {
		return fail(err)
	}

	var ingestOpts []ingest.Option
	if library != nil {
		ingestOpts = append(ingestOpts, ingest.WithRecorder(library))
	}
	ingestSvc := ingest.NewService(store, analyzer, ingestOpts...)

	if cfg.WatchDir != "" {
		w := ingest.NewWatcher(cfg.WatchDir, ingestSvc, app.Mixer.Enqueue)
		go func() {
			if err := w.Run(runCtx); err != nil {
				logger.Error("watcher stopped", logger.ErrorField(err))
			}
		}()
	}

	api := NewAPIHandler(app.Mixer, ingestSvc, store, library, cfg.JWTSecret)
	app.Server = New(cfg, api, app.Hub)
	return app, nil
}

// fanOut 推送给 WebSocket 客户端，同时异步写入 Redis
func fanOut(ctx context.Context, hub *Hub, session *cache.SessionCache) mixer.Listener {
	updates := make(chan model.Snapshot, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-updates:
				if err := session.Publish(ctx, snap); err != nil {
					logger.Warn("failed to publish session", logger.ErrorField(err))
				}
			}
		}
	}()
	return func(snap model.Snapshot) {
		hub.Publish(snap)
		// 只保留最新的一份
		select {
		case updates <- snap:
		default:
			select {
			case <-updates:
			default:
			}
			select {
			case updates <- snap:
			default:
			}
		}
	}
}

// sourceProber 把曲目地址映射为 ffprobe 可读取的输入
func sourceProber(cfg *config.Config) deck.DurationProber {
	return func(ctx context.Context, source string) (float64, error) {
		input, err := probeInput(cfg, source)
		if err != nil {
			return 0, err
		}
		return analysis.ProbeDuration(ctx, cfg.FFmpegPath, input)
	}
}

func probeInput(cfg *config.Config, source string) (string, error) {
	switch {
	case strings.HasPrefix(source, "/uploads/"):
		return filepath.Join(cfg.UploadDir, filepath.FromSlash(strings.TrimPrefix(source, "/uploads/"))), nil
	case strings.HasPrefix(source, storage.MediaRoute):
		return "http://" + localHost(cfg.Addr) + source, nil
	}
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("cannot probe source %q", source)
	}
	return source, nil
}

func localHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "127.0.0.1" + addr
	}
	return addr
}
