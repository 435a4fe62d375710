package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"

	"github.com/diwise/clusto-client/pkg/clusto/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Transport performs a single request against the clusto service and returns
// the raw response. Any status code is a successful round trip, it is up to
// the caller to interpret it.
type Transport interface {
	Do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string][]string) (int, http.Header, []byte, error)
}

type TransportFunc func(ctx context.Context, method, endpoint string, body io.Reader, headers map[string][]string) (int, http.Header, []byte, error)

func (f TransportFunc) Do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string][]string) (int, http.Header, []byte, error) {
	return f(ctx, method, endpoint, body, headers)
}

type httpTransport struct {
	httpClient *http.Client
	debug      bool
}

// NewHTTPTransport returns a Transport backed by an instrumented http.Client.
// A nil client is replaced by one wrapping http.DefaultTransport.
func NewHTTPTransport(httpClient *http.Client, debug bool) Transport {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &httpTransport{
		httpClient: httpClient,
		debug:      debug,
	}
}

func (t *httpTransport) Do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string][]string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("failed to create request: %s (%w)", err.Error(), errors.ErrInternal)
	}

	req.Header.Add("Accept", "application/json")

	for header, headerValue := range headers {
		for _, val := range headerValue {
			req.Header.Add(header, val)
		}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, errors.NewTransportError(err)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, errors.NewTransportError(fmt.Errorf("failed to read response body: %w", err))
	}

	if t.debug && (resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices) {
		reqbytes, _ := httputil.DumpRequest(req, false)
		respbytes, _ := httputil.DumpResponse(resp, false)

		log := logging.GetFromContext(ctx)
		log.Error("request failed", "request", string(reqbytes), "response", string(respbytes))
	}

	return resp.StatusCode, resp.Header, respBody, nil
}
