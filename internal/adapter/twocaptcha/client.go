// Package twocaptcha is a client for the 2captcha reCAPTCHA solving service.
package twocaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/mst-crawler/internal/entity"
	"github.com/user/mst-crawler/internal/repository"
	"github.com/user/mst-crawler/pkg/metrics"
	"github.com/user/mst-crawler/pkg/utils"
)

// notReady is the service's "keep polling" sentinel, in either response shape.
const notReady = "CAPCHA_NOT_READY"

const (
	defaultPollInterval = 5 * time.Second
	defaultMaxPolls     = 30
	requestTimeout      = 30 * time.Second
)

// Client talks to the in.php / res.php endpoints. It keeps no state between calls.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
	logger       *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPolling overrides the poll interval and attempt ceiling. Non-positive values keep the defaults.
func WithPolling(interval time.Duration, maxPolls int) Option {
	return func(c *Client) {
		if interval > 0 {
			c.pollInterval = interval
		}
		if maxPolls > 0 {
			c.maxPolls = maxPolls
		}
	}
}

// New creates a solver client for the given account key.
func New(apiKey, baseURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   &http.Client{Timeout: requestTimeout},
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
		logger:       logger.With(zap.String("component", "captcha")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ repository.CaptchaSolver = (*Client)(nil)

// apiResponse is the json=1 envelope. request carries the task id, token,
// balance or error code depending on the call.
type apiResponse struct {
	Status    int        `json:"status"`
	Request   flexString `json:"request"`
	ErrorText string     `json:"error_text"`
}

// flexString accepts both quoted and bare numeric JSON values.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// reply is a response body decoded from either shape.
type reply struct {
	ok      bool
	value   string
	errCode string
	raw     string
}

func (r reply) notReady() bool {
	return !r.ok && (r.errCode == notReady || r.value == notReady || r.raw == notReady)
}

func parseReply(contentType string, body []byte) (reply, error) {
	raw := strings.TrimSpace(string(body))
	if strings.HasPrefix(contentType, "application/json") {
		var resp apiResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return reply{raw: raw}, fmt.Errorf("decode response %q: %w", raw, err)
		}
		return reply{ok: resp.Status == 1, value: string(resp.Request), errCode: resp.ErrorText, raw: raw}, nil
	}
	if id, found := strings.CutPrefix(raw, "OK|"); found {
		return reply{ok: true, value: id, raw: raw}, nil
	}
	return reply{value: raw, raw: raw}, nil
}

// Solve submits a reCAPTCHA v2 task and polls until the token is ready.
func (c *Client) Solve(ctx context.Context, siteKey, pageURL string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptchaSolveDuration.Observe(time.Since(start).Seconds()) }()

	task, err := c.submit(ctx, siteKey, pageURL)
	if err != nil {
		return "", err
	}
	log := c.logger.With(zap.String("captcha_id", task.CaptchaID))
	log.Info("Captcha submitted")

	for attempt := 1; attempt <= c.maxPolls; attempt++ {
		if err := utils.Sleep(ctx, c.pollInterval); err != nil {
			return "", err
		}

		r, err := c.poll(ctx, task.CaptchaID)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			metrics.CaptchaPollsTotal.WithLabelValues("transport").Inc()
			log.Warn("Captcha poll failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		switch {
		case r.ok:
			metrics.CaptchaPollsTotal.WithLabelValues("ready").Inc()
			log.Info("Captcha solved", zap.Int("attempt", attempt))
			return r.value, nil
		case r.notReady():
			metrics.CaptchaPollsTotal.WithLabelValues("not_ready").Inc()
			log.Debug("Captcha not ready", zap.Int("attempt", attempt), zap.Int("max_polls", c.maxPolls))
		default:
			metrics.CaptchaPollsTotal.WithLabelValues("error").Inc()
			return "", fmt.Errorf("%w: %s", repository.ErrCaptchaSolve, r.raw)
		}
	}
	return "", fmt.Errorf("%w: no solution after %d polls", repository.ErrCaptchaTimeout, c.maxPolls)
}

func (c *Client) submit(ctx context.Context, siteKey, pageURL string) (*entity.CaptchaTask, error) {
	form := url.Values{
		"key":       {c.apiKey},
		"method":    {"userrecaptcha"},
		"googlekey": {siteKey},
		"pageurl":   {pageURL},
		"json":      {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/in.php", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCaptchaSubmission, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	r, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrCaptchaSubmission, err)
	}
	if !r.ok || r.value == "" {
		return nil, fmt.Errorf("%w: %s", repository.ErrCaptchaSubmission, r.raw)
	}
	return &entity.CaptchaTask{CaptchaID: r.value, SiteKey: siteKey, PageURL: pageURL}, nil
}

func (c *Client) poll(ctx context.Context, id string) (reply, error) {
	q := url.Values{"key": {c.apiKey}, "action": {"get"}, "id": {id}, "json": {"1"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/res.php?"+q.Encode(), nil)
	if err != nil {
		return reply{}, err
	}
	r, err := c.do(req)
	if err != nil && r.raw != "" {
		// A malformed body is a terminal answer, not a transport fault.
		return reply{value: r.raw, raw: r.raw}, nil
	}
	return r, err
}

// Balance returns the account balance in USD.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	q := url.Values{"key": {c.apiKey}, "action": {"getbalance"}, "json": {"1"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/res.php?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrBalance, err)
	}
	r, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrBalance, err)
	}
	value := r.value
	if r.errCode != "" || (!r.ok && strings.HasPrefix(r.raw, "{")) {
		return 0, fmt.Errorf("%w: %s", repository.ErrBalance, r.raw)
	}
	balance, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid balance %q", repository.ErrBalance, r.raw)
	}
	return balance, nil
}

func (c *Client) do(req *http.Request) (reply, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return reply{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return reply{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return reply{}, fmt.Errorf("captcha service returned %s", resp.Status)
	}
	return parseReply(resp.Header.Get("Content-Type"), body)
}
