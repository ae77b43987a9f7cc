package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"DHX/core/analysis"
	"DHX/logger"
	"DHX/model"
	"DHX/storage"

	"github.com/dhowden/tag"
	"github.com/google/uuid"
)

// ErrUnsupportedFormat 非 MP3 文件
var ErrUnsupportedFormat = errors.New("only MP3 files are accepted")

// File 上传或发现的音频文件
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Analyzer 本地文件分析接口
type Analyzer interface {
	AnalyzeFile(ctx context.Context, data []byte) (model.AnalysisResult, error)
}

// Recorder 分析结果持久化接口
type Recorder interface {
	Upsert(ctx context.Context, rec *model.TrackAnalysis) error
}

// Service 将原始文件转换为曲目
type Service struct {
	store    storage.Store
	analyzer Analyzer
	recorder Recorder
	newID    func() string
}

type Option func(*Service)

// WithRecorder 保存每次成功的分析
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(store storage.Store, analyzer Analyzer, opts ...Option) *Service {
	s := &Service{store: store, analyzer: analyzer, newID: uuid.NewString}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest 按顺序处理文件
// 被拒绝的文件跳过并汇总到返回的错误中，成功的曲目始终返回
func (s *Service) Ingest(ctx context.Context, files []File) ([]model.Track, error) {
	var (
		tracks []model.Track
		errs   []error
	)
	for _, f := range files {
		t, err := s.IngestOne(ctx, f)
		if err != nil {
			if ctx.Err() != nil {
				return tracks, ctx.Err()
			}
			errs = append(errs, err)
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, errors.Join(errs...)
}

// IngestOne 存储、读取标签并分析单个文件
func (s *Service) IngestOne(ctx context.Context, f File) (model.Track, error) {
	name := filepath.Base(f.Name)
	if !IsMP3(name, f.ContentType) {
		logger.Warn("rejected upload", logger.String("file", name), logger.String("contentType", f.ContentType))
		return model.Track{}, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}

	contentType := f.ContentType
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	url, err := s.store.Put(ctx, name, contentType, f.Data)
	if err != nil {
		return model.Track{}, fmt.Errorf("%s: %w", name, err)
	}

	artist, title := ParseFileName(name)
	t := model.NewTrack("loaded-"+s.newID(), title, artist, url)
	t.Source = model.SourceLocal
	t.ContentHash = analysis.ContentKey(f.Data)
	readTags(&t, f.Data)
	if d, err := analysis.MP3Duration(f.Data); err == nil {
		t.Duration = d
	}

	res, err := s.analyzer.AnalyzeFile(ctx, f.Data)
	if err != nil {
		logger.Warn("analysis failed, keeping defaults",
			logger.String("file", name),
			logger.ErrorField(err))
		t.Analyzing = false
		return t, nil
	}
	t.ApplyAnalysis(res)
	s.record(ctx, t, res)

	logger.Info("track ingested",
		logger.String("trackId", t.ID),
		logger.String("title", t.Title),
		logger.Int("bpm", t.BPM),
		logger.String("key", t.Key))
	return t, nil
}

// readTags 读取 ID3 中的专辑和流派
func readTags(t *model.Track, data []byte) {
	meta, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		logger.Debug("no readable tags", logger.String("trackId", t.ID), logger.ErrorField(err))
		return
	}
	t.Album = meta.Album()
	t.Genre = meta.Genre()
}

func (s *Service) record(ctx context.Context, t model.Track, res model.AnalysisResult) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Upsert(ctx, &model.TrackAnalysis{
		ContentHash: t.ContentHash,
		Title:       t.Title,
		Artist:      t.Artist,
		Album:       t.Album,
		Genre:       t.Genre,
		Source:      t.Source,
		AudioURL:    t.AudioSource,
		BPM:         res.BPM,
		MusicalKey:  res.Key,
		Confidence:  res.Confidence,
		Duration:    t.Duration,
	})
	if err != nil {
		logger.Warn("failed to record analysis", logger.String("trackId", t.ID), logger.ErrorField(err))
	}
}
