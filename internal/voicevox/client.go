// Package voicevox 是 VOICEVOX 引擎 HTTP API 的客户端。
// 合成分两步：先由 audio_query 生成合成参数，再把参数原样交给 synthesis 得到 WAV。
package voicevox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iabetor/vvsay/internal/audio"
	"github.com/iabetor/vvsay/internal/logger"
)

const (
	// DefaultBaseURL 是本机 VOICEVOX 引擎的默认地址。
	DefaultBaseURL = "http://127.0.0.1:50021/"
	// errorBodyLimit 限制 StatusError 中保留的响应体长度。
	errorBodyLimit = 512
)

// ErrInvalidJSON 表示 audio_query 的响应体不是合法 JSON。
var ErrInvalidJSON = errors.New("响应不是合法的 JSON")

// AudioQuery 是 audio_query 返回的合成参数，本程序不解析其内容，原样回传给 synthesis。
type AudioQuery json.RawMessage

// MarshalJSON 原样输出查询内容。
func (q AudioQuery) MarshalJSON() ([]byte, error) {
	if len(q) == 0 {
		return []byte("null"), nil
	}
	return q, nil
}

// StatusError 表示引擎返回了非 2xx 状态码。
type StatusError struct {
	Op   string // audio_query 或 synthesis
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s 请求失败: HTTP %d: %s", e.Op, e.Code, e.Body)
}

// Client 调用 VOICEVOX 引擎。
type Client struct {
	baseURL      *url.URL
	httpClient   *http.Client
	ignoreStatus bool
	requestID    string
}

// Option 配置 Client。
type Option func(*Client)

// WithHTTPClient 替换默认的 http.Client。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout 为每个请求设置超时，0 表示不设超时。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithIgnoreStatus 为 true 时非 2xx 状态码只记录日志，响应体照常返回。
// 这样服务端的错误响应会在之后的 WAV 解码阶段才失败。
func WithIgnoreStatus(ignore bool) Option {
	return func(c *Client) { c.ignoreStatus = ignore }
}

// WithRequestID 在每个请求上附加 X-Request-ID 头。
func WithRequestID(id string) Option {
	return func(c *Client) { c.requestID = id }
}

// NewClient 创建指向 baseURL 的客户端，baseURL 为空时使用 DefaultBaseURL。
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[voicevox] 无效的地址 %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("[voicevox] 无效的地址 %q: 需要 http 或 https", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{baseURL: u, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()
	return u.String()
}

func speakerQuery(speaker int) url.Values {
	return url.Values{"speaker": {strconv.Itoa(speaker)}}
}

// CreateQuery 调用 POST /audio_query，返回未经修改的合成参数。
func (c *Client) CreateQuery(ctx context.Context, text string, speaker int) (AudioQuery, error) {
	params := speakerQuery(speaker)
	params.Set("text", text)

	body, status, err := c.post(ctx, c.endpoint("audio_query", params), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("[voicevox] audio_query 请求失败: %w", err)
	}
	if err := c.checkStatus("audio_query", status, body); err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("[voicevox] audio_query: %w (%d 字节)", ErrInvalidJSON, len(body))
	}
	logger.Debugf("[voicevox] audio_query: 收到 %d 字节合成参数", len(body))
	return AudioQuery(body), nil
}

// RequestAudio 调用 POST /synthesis，返回响应体原始字节。
// 状态码总会记录到日志；默认情况下非 2xx 返回 *StatusError。
func (c *Client) RequestAudio(ctx context.Context, query AudioQuery, speaker int) ([]byte, error) {
	headers := http.Header{
		"Accept":       {"audio/wav"},
		"Content-Type": {"application/json"},
	}
	body, status, err := c.post(ctx, c.endpoint("synthesis", speakerQuery(speaker)), query, headers)
	if err != nil {
		return nil, fmt.Errorf("[voicevox] synthesis 请求失败: %w", err)
	}

	logger.Infof("[voicevox] Synthesis status code: %d", status)
	if err := c.checkStatus("synthesis", status, body); err != nil {
		return nil, err
	}
	return body, nil
}

// GetVoice 把文本合成为音频：audio_query → synthesis → WAV 解码。
func (c *Client) GetVoice(ctx context.Context, text string, speaker int) (*audio.Buffer, error) {
	logger.Debugf("[voicevox] 正在合成 %d 个字符，话者=%d", len([]rune(text)), speaker)

	query, err := c.CreateQuery(ctx, text, speaker)
	if err != nil {
		return nil, err
	}
	data, err := c.RequestAudio(ctx, query, speaker)
	if err != nil {
		return nil, err
	}

	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("[voicevox] 解码合成结果失败: %w", err)
	}
	logger.Debugf("[voicevox] 得到 %d 帧，采样率 %d Hz，时长 %s", buf.Frames(), buf.SampleRate, buf.Duration())
	return buf, nil
}

func (c *Client) checkStatus(op string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if c.ignoreStatus {
		// synthesis 的状态码已由 RequestAudio 记录
		if op != "synthesis" {
			logger.Warnf("[voicevox] %s 返回 HTTP %d，按设置忽略状态码", op, status)
		}
		return nil
	}
	if len(body) > errorBodyLimit {
		body = body[:errorBodyLimit]
	}
	return &StatusError{Op: op, Code: status, Body: strings.TrimSpace(string(body))}
}

func (c *Client) post(ctx context.Context, endpoint string, payload []byte, headers http.Header) ([]byte, int, error) {
	return c.do(ctx, http.MethodPost, endpoint, payload, headers)
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte, headers http.Header) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("创建请求失败: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	if c.requestID != "" {
		req.Header.Set("X-Request-ID", c.requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("读取响应失败: %w", err)
	}
	return body, resp.StatusCode, nil
}
