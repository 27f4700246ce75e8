// Package upstream 访问外部实时数据源（选课人数、评价、课程大纲、讨论版镜像）。
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/NTUCourse-Neo/ncn-backend-v2/config"
	"github.com/NTUCourse-Neo/ncn-backend-v2/internal/model"
	pkgerrors "github.com/NTUCourse-Neo/ncn-backend-v2/pkg/errors"
)

// maxBodySize 上游响应体上限
const maxBodySize = 4 << 20

// payloadField 各类别响应中承载数据的字段
// 讨论版镜像沿用 course_rating 字段
var payloadField = map[model.LiveDataKind]string{
	model.LiveDataEnrollInfo: "course_status",
	model.LiveDataRating:     "course_rating",
	model.LiveDataBoard:      "course_rating",
	model.LiveDataSyllabus:   "course_syllabus",
}

// Client 实时数据源 HTTP 客户端
type Client struct {
	httpClient    *http.Client
	endpoint      string
	boardEndpoint string
	logger        *zap.Logger
}

// NewClient 创建客户端，出站请求受 rate_limit / burst 节流
func NewClient(cfg *config.LiveDataConfig, logger *zap.Logger) *Client {
	httpClient := &http.Client{}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		addRateLimiter(httpClient, rate.NewLimiter(rate.Limit(cfg.RateLimit), burst))
	}
	return &Client{
		httpClient:    httpClient,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		boardEndpoint: strings.TrimRight(cfg.BoardEndpoint, "/"),
		logger:        logger,
	}
}

// Fetch 拉取一条实时数据，返回 payload 字段的原始 JSON
//
// 非 2xx、网络错误、超时、响应无法解析均返回 ErrUpstreamUnavailable。
// 超时由调用方通过 ctx 控制。
func (c *Client) Fetch(ctx context.Context, kind model.LiveDataKind, courseID, subType string) (json.RawMessage, error) {
	target, err := c.url(kind, courseID, subType)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("构造上游请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("上游请求失败",
			zap.String("url", target),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, pkgerrors.Newf(pkgerrors.ErrUpstreamUnavailable, "请求上游失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		c.logger.Warn("上游返回非成功状态",
			zap.String("url", target),
			zap.Int("status", resp.StatusCode),
		)
		return nil, pkgerrors.Newf(pkgerrors.ErrUpstreamUnavailable, "上游返回状态码 %d", resp.StatusCode)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&body); err != nil {
		return nil, pkgerrors.Newf(pkgerrors.ErrUpstreamUnavailable, "解析上游响应失败: %v", err)
	}

	field := payloadField[kind]
	raw, ok := body[field]
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.ErrUpstreamUnavailable, "上游响应缺少字段 %s", field)
	}

	c.logger.Debug("上游请求成功",
		zap.String("url", target),
		zap.Duration("latency", time.Since(start)),
	)
	return raw, nil
}

func (c *Client) url(kind model.LiveDataKind, courseID, subType string) (string, error) {
	id := url.PathEscape(courseID)
	switch kind {
	case model.LiveDataEnrollInfo, model.LiveDataRating, model.LiveDataSyllabus:
		return fmt.Sprintf("%s/api/v1/courses/%s/%s", c.endpoint, id, kind), nil
	case model.LiveDataBoard:
		return fmt.Sprintf("%s/api/v1/courses/%s/ptt/%s", c.boardEndpoint, id, url.PathEscape(subType)), nil
	default:
		return "", pkgerrors.Newf(pkgerrors.ErrValidation, "未知的实时数据类别: %s", kind)
	}
}

// ── 出站节流 ──

type rateLimitedRoundTripper struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (rt *rateLimitedRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := rt.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return rt.transport.RoundTrip(req)
}

func addRateLimiter(client *http.Client, limiter *rate.Limiter) {
	rt := &rateLimitedRoundTripper{limiter: limiter}
	if client.Transport == nil {
		rt.transport = http.DefaultTransport
	} else {
		rt.transport = client.Transport
	}
	client.Transport = rt
}
