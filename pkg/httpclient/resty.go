package httpclient

import (
	"context"
	"net/http"
	"time"

	"golang-backtest/pkg/logger"

	"github.com/go-resty/resty/v2"
)

type RestyClient struct {
	client *resty.Client
	log    *logger.Logger
}

type Option func(*resty.Client)

// WithRetry retries requests that failed at the transport level or returned
// 429 or a 5xx status
func WithRetry(count int, wait, maxWait time.Duration) Option {
	return func(c *resty.Client) {
		c.SetRetryCount(count).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(maxWait).
			AddRetryCondition(func(r *resty.Response, err error) bool {
				if err != nil {
					return true
				}
				return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= http.StatusInternalServerError
			})
	}
}

// WithHeader sets a header sent with every request
func WithHeader(key, value string) Option {
	return func(c *resty.Client) {
		if value != "" {
			c.SetHeader(key, value)
		}
	}
}

func New(log *logger.Logger, baseURL string, timeout time.Duration, opts ...Option) HTTPClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	for _, opt := range opts {
		opt(client)
	}

	rc := &RestyClient{client: client, log: log}
	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		rc.log.Debug("HTTP request completed",
			logger.StringField("method", resp.Request.Method),
			logger.StringField("url", resp.Request.URL),
			logger.IntField("status_code", resp.StatusCode()),
			logger.Int64Field("duration_ms", resp.Time().Milliseconds()),
		)
		return nil
	})

	return rc
}

func toBaseResponse(resp *resty.Response) *BaseResponse {
	if resp == nil {
		return &BaseResponse{}
	}
	return &BaseResponse{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
		Headers:    resp.Header(),
	}
}

// GET request with optional query params
func (rc *RestyClient) Get(ctx context.Context, endpoint string, queryParams map[string]string, headers map[string]string, result interface{}) (*BaseResponse, error) {
	req := rc.client.R().SetContext(ctx).SetResult(result)

	if queryParams != nil {
		req.SetQueryParams(queryParams)
	}

	if headers != nil {
		req.SetHeaders(headers)
	}

	resp, err := req.Get(endpoint)
	return toBaseResponse(resp), err
}
