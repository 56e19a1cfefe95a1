package xbridge

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

// envelope is the bridge's uniform response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *bridgeError    `json:"error"`
}

type bridgeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// dispatcher issues single HTTP requests against the bridge. It attaches the
// session cookies and enforces per-attempt timeouts; retry policy lives one
// layer up in the retrier.
type dispatcher struct {
	http *resty.Client
}

func newDispatcher(cfg Config) *dispatcher {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.RequestTimeout)
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetHeader("Content-Type", "application/json")
	client.SetTransport(&http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		MaxIdleConnsPerHost: 4,
	})
	// Retries are the retrier's concern, not the transport's.
	client.SetRetryCount(0)

	return &dispatcher{http: client}
}

// send performs one request and returns the envelope's data payload.
// Transport failures map to TransportError, non-2xx statuses to HTTPError,
// and application-level envelope errors to the taxonomy in errors.go.
func (d *dispatcher) send(ctx context.Context, sess *Session, ep endpoint, pathArg string, body any) (json.RawMessage, error) {
	req := d.http.R().
		SetContext(ctx).
		SetHeader("Cookie", sess.Header())
	if body != nil {
		req.SetBody(body)
	}

	var res *resty.Response
	var err error
	switch ep.Method {
	case http.MethodPost:
		res, err = req.Post(ep.url(pathArg))
	default:
		res, err = req.Get(ep.url(pathArg))
	}
	if err != nil {
		return nil, &TransportError{Endpoint: ep.Name, Err: err}
	}

	status := res.StatusCode()
	if status < 200 || status > 299 {
		httpErr := &HTTPError{Endpoint: ep.Name, Status: status}
		// Error details are best-effort; the bridge may reply with bare text.
		var env envelope
		if json.Unmarshal(res.Body(), &env) == nil && env.Error != nil {
			httpErr.Code = env.Error.Code
			httpErr.Message = env.Error.Message
		}
		if status == http.StatusTooManyRequests {
			httpErr.RetryAfter = parseRetryAfter(res.Header().Get("Retry-After"))
		}
		return nil, httpErr
	}

	var env envelope
	if err := json.Unmarshal(res.Body(), &env); err != nil {
		return nil, &MalformedResponseError{Field: "envelope", Reason: "not valid JSON: " + err.Error()}
	}
	if !env.Success {
		return nil, mapBridgeError(ep.Name, status, env.Error)
	}
	return env.Data, nil
}

// mapBridgeError translates application-level bridge error codes reported
// inside a 2xx envelope into the client error taxonomy.
func mapBridgeError(endpointName string, status int, be *bridgeError) error {
	code, message := "UNKNOWN", "unknown error"
	if be != nil {
		if be.Code != "" {
			code = be.Code
		}
		if be.Message != "" {
			message = be.Message
		}
	}

	switch {
	case strings.Contains(code, "AUTHENTICATION"):
		return &InvalidSessionError{Reason: message}
	case code == "NOT_FOUND":
		return &HTTPError{Endpoint: endpointName, Status: http.StatusNotFound, Code: code, Message: message}
	case code == "RATE_LIMITED":
		return &HTTPError{Endpoint: endpointName, Status: http.StatusTooManyRequests, Code: code, Message: message}
	default:
		return &HTTPError{Endpoint: endpointName, Status: status, Code: code, Message: message}
	}
}
