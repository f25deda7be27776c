// Package remote is the JSON/HTTP client for the commerce collaborators: cart store, catalog,
// order processor and shipping-rate service. Every failure comes back as a
// *domain.RemoteError so callers branch on its Kind rather than on message text.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"storefront-checkout/internal/domain"
)

const sessionHeader = "X-Session-ID"

const genericFailure = "Something went wrong. Please try again."

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Transport http.RoundTripper
	// BreakerFailures is the number of consecutive transport failures that opens the circuit.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// Client calls the collaborator endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[response]
	logger     *log.Logger
}

type response struct {
	status int
	header http.Header
	body   []byte
}

type errorBody struct {
	Message string              `json:"message"`
	Errors  []domain.FieldError `json:"errors"`
}

var errServerStatus = errors.New("server error status")

func New(cfg Config, logger *log.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("commerce api url required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker[response](gobreaker.Settings{
		Name:        "commerce-api",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// A caller that went away says nothing about the collaborator's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("circuit %s: %s -> %s", name, from, to)
		},
	})

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker: breaker,
		logger:  logger,
	}, nil
}

type call struct {
	op        string
	method    string
	path      string
	sessionID string
	header    map[string]string
	in        interface{}
}

func (c *Client) do(ctx context.Context, cl call) (response, error) {
	var body io.Reader
	if cl.in != nil {
		raw, err := json.Marshal(cl.in)
		if err != nil {
			return response{}, &domain.RemoteError{Kind: domain.KindUnknown, Op: cl.op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return response{}, &domain.RemoteError{Kind: domain.KindUnknown, Op: cl.op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if cl.in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.sessionID != "" {
		req.Header.Set(sessionHeader, cl.sessionID)
	}
	for k, v := range cl.header {
		req.Header.Set(k, v)
	}

	resp, err := c.breaker.Execute(func() (response, error) {
		httpResp, err := c.httpClient.Do(req)
		if err != nil {
			return response{}, err
		}
		defer httpResp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(httpResp.Body, 4<<20))
		if err != nil {
			return response{}, err
		}
		out := response{status: httpResp.StatusCode, header: httpResp.Header, body: raw}
		if httpResp.StatusCode >= http.StatusInternalServerError {
			return out, errServerStatus
		}
		return out, nil
	})
	if err != nil && !errors.Is(err, errServerStatus) {
		return response{}, &domain.RemoteError{Kind: domain.KindNetwork, Op: cl.op, Message: genericFailure, Err: err}
	}
	if (resp.status >= 200 && resp.status < 300) || resp.status == http.StatusNotModified {
		return resp, nil
	}
	return resp, remoteError(cl.op, resp)
}

// remoteError classifies a non-2xx response. Unparseable bodies yield a generic message.
func remoteError(op string, resp response) error {
	re := &domain.RemoteError{Op: op, Status: resp.status, Message: genericFailure}
	var eb errorBody
	parsed := len(resp.body) > 0 && json.Unmarshal(resp.body, &eb) == nil
	if parsed && strings.TrimSpace(eb.Message) != "" {
		re.Message = eb.Message
	}
	switch {
	case resp.status == http.StatusNotFound:
		re.Kind = domain.KindNotFound
		if !parsed || eb.Message == "" {
			re.Message = "Your cart session has expired. Please refresh the page."
		}
	case parsed && len(eb.Errors) > 0 && resp.status < http.StatusInternalServerError:
		re.Kind = domain.KindRemoteValidation
		re.Fields = eb.Errors
	case resp.status == http.StatusBadGateway, resp.status == http.StatusServiceUnavailable,
		resp.status == http.StatusGatewayTimeout, resp.status == http.StatusRequestTimeout:
		re.Kind = domain.KindNetwork
	default:
		re.Kind = domain.KindUnknown
	}
	return re
}

func decode(op string, resp response, out interface{}) error {
	if len(resp.body) == 0 {
		return &domain.RemoteError{Kind: domain.KindUnknown, Op: op, Status: resp.status, Message: genericFailure, Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &domain.RemoteError{Kind: domain.KindUnknown, Op: op, Status: resp.status, Message: genericFailure, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
