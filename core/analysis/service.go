package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"net/http"

	"DHX/logger"
	"DHX/model"
)

// FileConfidence 本地文件分析成功时的置信度
const FileConfidence = 0.8

// ResultCache 按内容或 URL 缓存分析结果
type ResultCache interface {
	Get(ctx context.Context, key string) (model.AnalysisResult, bool)
	Set(ctx context.Context, key string, result model.AnalysisResult)
}

// Service 音频分析服务
type Service struct {
	decoder    Decoder
	httpClient *http.Client
	cache      ResultCache
}

// Option 服务配置项
type Option func(*Service)

// WithCache 启用结果缓存
func WithCache(c ResultCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithHTTPClient 替换 AnalyzeURL 使用的 HTTP 客户端
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// NewService 创建分析服务
// 远程下载本身不设超时，由调用方通过 context 控制
func NewService(decoder Decoder, opts ...Option) *Service {
	s := &Service{decoder: decoder, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ContentKey 文件内容的缓存键
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// AnalyzePCM 对 PCM 执行节拍和调性估算
func AnalyzePCM(pcm *PCM) model.AnalysisResult {
	w := NewWindower(pcm.Samples, DefaultWindowSize, DefaultHopSize)
	bpm := NewBeatEstimator(pcm.SampleRate, w.Hop()).Estimate(w.Energies())
	return model.AnalysisResult{
		BPM:        int(math.Floor(bpm + 0.5)),
		Key:        EstimateKey(pcm.Samples, pcm.SampleRate, DefaultFFTSize),
		Confidence: FileConfidence,
	}
}

// AnalyzeFile 解码并分析本地文件
// 无法解码时返回 *DecodeError，由调用方使用默认值
func (s *Service) AnalyzeFile(ctx context.Context, data []byte) (model.AnalysisResult, error) {
	key := "file:" + ContentKey(data)
	if res, ok := s.lookup(ctx, key); ok {
		return res, nil
	}

	pcm, err := s.decoder.Decode(ctx, data)
	if err != nil {
		if IsDecodeError(err) || ctx.Err() != nil {
			return model.AnalysisResult{}, err
		}
		return model.AnalysisResult{}, &DecodeError{Err: err}
	}

	res := AnalyzePCM(pcm)
	s.store(ctx, key, res)
	logger.Debug("file analysed",
		logger.Int("bpm", res.BPM),
		logger.String("key", res.Key),
		logger.Float64("seconds", pcm.Duration()))
	return res, nil
}

// AnalyzeURL 下载并分析远程音频；任何失败都返回 model.FallbackAnalysis
func (s *Service) AnalyzeURL(ctx context.Context, url string) model.AnalysisResult {
	key := "url:" + url
	if res, ok := s.lookup(ctx, key); ok {
		return res
	}

	data, err := s.fetch(ctx, url)
	if err != nil {
		logger.Warn("remote analysis fetch failed, using defaults",
			logger.String("url", url),
			logger.ErrorField(err))
		return model.FallbackAnalysis()
	}

	pcm, err := s.decoder.Decode(ctx, data)
	if err != nil {
		logger.Warn("remote analysis decode failed, using defaults",
			logger.String("url", url),
			logger.ErrorField(err))
		return model.FallbackAnalysis()
	}

	res := AnalyzePCM(pcm)
	s.store(ctx, key, res)
	return res
}

func (s *Service) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return data, nil
}

func (s *Service) lookup(ctx context.Context, key string) (model.AnalysisResult, bool) {
	if s.cache == nil {
		return model.AnalysisResult{}, false
	}
	return s.cache.Get(ctx, key)
}

func (s *Service) store(ctx context.Context, key string, res model.AnalysisResult) {
	if s.cache != nil {
		s.cache.Set(ctx, key, res)
	}
}
