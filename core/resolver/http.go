package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPResolver 通过远程解析服务获取播放地址
type HTTPResolver struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPResolver 创建解析客户端；timeout 为 0 表示不设超时
func NewHTTPResolver(name, baseURL string, timeout time.Duration) *HTTPResolver {
	return &HTTPResolver{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *HTTPResolver) Name() string { return c.name }

// Resolve 请求 GET {base}/resolve?q=
func (c *HTTPResolver) Resolve(ctx context.Context, query string) (*Resolution, error) {
	endpoint := fmt.Sprintf("%s/resolve?q=%s", c.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ResolutionError{Query: query, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ResolutionError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &ResolutionError{Query: query, Err: fmt.Errorf("resolver returned status %d", resp.StatusCode)}
	}

	var res Resolution
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, &ResolutionError{Query: query, Err: fmt.Errorf("decode response: %w", err)}
	}
	switch res.Source {
	case "spotify", "youtube":
	case "":
		res.Source = "youtube"
	default:
		return nil, &ResolutionError{Query: query, Err: fmt.Errorf("unknown source %q", res.Source)}
	}
	return &res, nil
}
