package faultline

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"

	"github.com/pkg/errors"
)

// maxResponseBody caps how much of an ingestion response is read.
const maxResponseBody = 1 << 20

// TransportRequest is one outbound call.
type TransportRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
}

// TransportResponse is the result of an outbound call.
type TransportResponse struct {
	StatusCode int
	Body       []byte
}

// Transport performs outbound calls to the ingestion service.
// Implementations must be safe for concurrent use.
type Transport interface {
	Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error)
}

// HTTPTransport sends requests with net/http.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a transport honoring the connect and request timeouts of cfg.
func NewHTTPTransport(cfg Config) *HTTPTransport {
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialer.DialContext
	tr.TLSHandshakeTimeout = cfg.ConnectTimeout

	return &HTTPTransport{
		client: &http.Client{Transport: tr, Timeout: cfg.RequestTimeout},
	}
}

// Send performs req and reads at most 1 MiB of the response body.
func (t *HTTPTransport) Send(ctx context.Context, req *TransportRequest) (*TransportResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	return &TransportResponse{StatusCode: resp.StatusCode, Body: body}, nil
}
