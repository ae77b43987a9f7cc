package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"DHX/logger"
	"DHX/model"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle 文件保持不变多久后才导入
const DefaultSettle = 500 * time.Millisecond

// Sink 接收监听器导入的曲目
type Sink func(model.Track) error

// Watcher 监听目录并导入新的 MP3 文件
type Watcher struct {
	dir    string
	svc    *Service
	sink   Sink
	settle time.Duration
}

func NewWatcher(dir string, svc *Service, sink Sink) *Watcher {
	return &Watcher{dir: dir, svc: svc, sink: sink, settle: DefaultSettle}
}

// SetSettle 覆盖 DefaultSettle
func (w *Watcher) SetSettle(d time.Duration) { w.settle = d }

// Run 阻塞直到 ctx 结束，每个路径最多导入一次
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	logger.Info("watching for new tracks", logger.String("dir", w.dir))

	timers := make(map[string]*time.Timer)
	ready := make(chan string, 16)
	processed := make(map[string]bool)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !IsMP3(event.Name, "") || processed[event.Name] {
				continue
			}
			name := event.Name
			if t, ok := timers[name]; ok {
				t.Reset(w.settle)
				continue
			}
			timers[name] = time.AfterFunc(w.settle, func() {
				select {
				case ready <- name:
				case <-ctx.Done():
				}
			})
		case name := <-ready:
			delete(timers, name)
			if processed[name] {
				continue
			}
			processed[name] = true
			w.process(ctx, name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", logger.ErrorField(err))
		}
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("failed to read watched file", logger.String("path", path), logger.ErrorField(err))
		return
	}
	t, err := w.svc.IngestOne(ctx, File{Name: filepath.Base(path), Data: data})
	if err != nil {
		logger.Warn("failed to ingest watched file", logger.String("path", path), logger.ErrorField(err))
		return
	}
	if err := w.sink(t); err != nil {
		logger.Warn("failed to queue watched file", logger.String("trackId", t.ID), logger.ErrorField(err))
	}
}
