package publisher

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/go-resty/resty/v2"
)

// BreakerConfig 熔断参数
type BreakerConfig struct {
	FailureThreshold uint
	FailureWindow    uint
	Delay            time.Duration
}

// HTTPProvider 所有账号共用同一个熔断器，平台故障时整体快速失败
type HTTPProvider struct {
	client  *resty.Client
	breaker circuitbreaker.CircuitBreaker[*resty.Response]
	timeout time.Duration
}

func NewHTTPProvider(baseURL, token string, callTimeout time.Duration, bc BreakerConfig) *HTTPProvider {
	if bc.FailureWindow < bc.FailureThreshold {
		bc.FailureWindow = bc.FailureThreshold
	}
	breaker := circuitbreaker.NewBuilder[*resty.Response]().
		HandleIf(func(resp *resty.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode() >= http.StatusInternalServerError)
		}).
		WithFailureThresholdRatio(bc.FailureThreshold, bc.FailureWindow).
		WithDelay(bc.Delay).
		WithSuccessThreshold(1).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			log.Warn("publisher circuit breaker state changed",
				"from", event.OldState, "to", event.NewState)
		}).
		Build()

	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetHeader("Content-Type", "application/json")

	return &HTTPProvider{client: client, breaker: breaker, timeout: callTimeout}
}

func (p *HTTPProvider) For(account Account) (Client, error) {
	if account.Handle == "" {
		return nil, fmt.Errorf("account %d has no handle", account.ID)
	}
	return &HTTPClient{provider: p, handle: account.Handle}, nil
}

// HTTPClient 代表某个账号调用平台网关
type HTTPClient struct {
	provider *HTTPProvider
	handle   string
}

type postRequest struct {
	Handle  string `json:"handle"`
	Text    string `json:"text"`
	ReplyTo string `json:"reply_to,omitempty"`
}

func (c *HTTPClient) execute(ctx context.Context, fn func(r *resty.Request) (*resty.Response, error)) (*resty.Response, error) {
	if c.provider.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.provider.timeout)
		defer cancel()
	}
	resp, err := failsafe.With[*resty.Response](c.provider.breaker).
		WithContext(ctx).
		Get(func() (*resty.Response, error) {
			return fn(c.provider.client.R().SetContext(ctx))
		})
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return resp, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode())
	}
	return resp, nil
}

func (c *HTTPClient) Post(ctx context.Context, text string, replyTo string) (PostResult, error) {
	var out PostResult
	_, err := c.execute(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(postRequest{Handle: c.handle, Text: text, ReplyTo: replyTo}).
			SetResult(&out).
			Post("/v1/posts")
	})
	if err != nil {
		return PostResult{}, err
	}
	if out.PostID == "" {
		return PostResult{}, errors.New("platform returned empty post id")
	}
	return out, nil
}

func (c *HTTPClient) FetchMetrics(ctx context.Context, postID string) (Metrics, error) {
	var out Metrics
	_, err := c.execute(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetPathParam("id", postID).SetResult(&out).Get("/v1/posts/{id}/metrics")
	})
	if err != nil {
		return Metrics{}, err
	}
	return out, nil
}
