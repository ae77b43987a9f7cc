package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"DHX/logger"
	"DHX/model"

	"github.com/go-redis/redis/v8"
)

const (
	analysisKeyPrefix = "dhx:analysis:"
	analysisTTL       = 7 * 24 * time.Hour
)

// AnalysisCache 分析结果缓存，按内容哈希或URL索引
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAnalysisCache 使用全局客户端创建分析缓存
func NewAnalysisCache() *AnalysisCache {
	return NewAnalysisCacheWithClient(RedisClient)
}

// NewAnalysisCacheWithClient 使用指定客户端创建分析缓存
func NewAnalysisCacheWithClient(client *redis.Client) *AnalysisCache {
	return &AnalysisCache{client: client, ttl: analysisTTL}
}

func analysisKey(key string) string { return analysisKeyPrefix + key }

// Get 读取缓存；未命中或出错都视为未命中
func (c *AnalysisCache) Get(ctx context.Context, key string) (model.AnalysisResult, bool) {
	if c == nil || c.client == nil {
		return model.AnalysisResult{}, false
	}
	data, err := c.client.Get(ctx, analysisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("analysis cache read failed", logger.String("key", key), logger.ErrorField(err))
		}
		return model.AnalysisResult{}, false
	}
	var res model.AnalysisResult
	if err := json.Unmarshal(data, &res); err != nil {
		logger.Warn("analysis cache entry corrupt", logger.String("key", key), logger.ErrorField(err))
		return model.AnalysisResult{}, false
	}
	return res, true
}

// Set 写入缓存，失败只记录日志
func (c *AnalysisCache) Set(ctx context.Context, key string, res model.AnalysisResult) {
	if c == nil || c.client == nil {
		return
	}
	data, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, analysisKey(key), data, c.ttl).Err(); err != nil {
		logger.Warn("analysis cache write failed", logger.String("key", key), logger.ErrorField(err))
	}
}
