package pithos

import (
	"context"
	"net/http"
	"time"

	"github.com/glin-gogogo/go-pithos/utils"
	"github.com/go-resty/resty/v2"
)

// Transport sends one request and returns the raw response. Implementations
// must be safe for concurrent use; connection pooling lives behind this
// boundary.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

type restyTransport struct {
	client *resty.Client
}

// NewTransport builds the default pooled transport from cfg.
func NewTransport(cfg *utils.Config) Transport {
	return newRestyTransport(cfg, log)
}

func newRestyTransport(cfg *utils.Config, logger resty.Logger) *restyTransport {
	maxConns := cfg.MaxConnections
	if maxConns <= 0 {
		maxConns = utils.DefaultMaxConnections
	}

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        maxConns,
		MaxIdleConnsPerHost: maxConns,
		MaxConnsPerHost:     maxConns,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  !cfg.Compression,
		ForceAttemptHTTP2:   true,
	}

	client := resty.New().
		SetTransport(tr).
		SetRetryCount(0).
		SetLogger(logger).
		SetDebug(cfg.Debug).
		SetHeader(string(UserAgentHeader), cfg.UserAgent).
		OnRequestLog(redactRequestLog)
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	if cfg.FollowRedirects {
		client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(cfg.MaxRedirects))
	} else {
		client.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}))
	}

	return &restyTransport{client: client}
}

const redacted = "<redacted>"

// redactRequestLog keeps the auth token out of resty's debug output.
func redactRequestLog(rl *resty.RequestLog) error {
	for name := range rl.Header {
		if XAuthToken.Is(name) {
			rl.Header[name] = []string{redacted}
		}
	}
	return nil
}

func (t *restyTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	r := t.client.R().SetContext(ctx)
	for k, vs := range req.Header {
		for _, v := range vs {
			r.SetHeaderVerbatim(k, v)
		}
	}
	if req.Body != nil {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return nil, &Error{Kind: KindTransportFailure, Message: "request failed", Cause: err}
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}, nil
}
