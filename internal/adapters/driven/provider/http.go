// Package provider holds the HTTP plumbing shared by the external model
// adapters: JSON requests and mapping of transport failures, status codes
// and undecodable bodies onto the domain provider errors.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/custodia-labs/hask/internal/core/domain"
)

// maxErrorBody bounds the response text kept in a ProviderError.
const maxErrorBody = 512

// Request describes one JSON call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any
}

// DoJSON sends req and decodes a 2xx response into out. out may be nil.
func DoJSON(ctx context.Context, client *http.Client, name string, req Request, out any) error {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader = http.NoBody
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", name, err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", name, err)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return Transport(ctx, name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transport(ctx, name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.NewProviderError(name, resp.StatusCode, errorMessage(data))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return domain.Malformed(name, "decode response: %v", err)
	}
	return nil
}

// Transport classifies a failed round trip. Caller cancellation is returned
// as the context error; deadlines and network timeouts become
// domain.ErrProviderTimeout; anything else is a provider failure.
func Transport(ctx context.Context, name string, err error) error {
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.Canceled) {
		return ctxErr
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %w", domain.ErrProviderTimeout, name, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrProviderFailed, name, err)
}

// errorMessage pulls a message out of common provider error bodies.
func errorMessage(data []byte) string {
	var shaped struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if json.Unmarshal(data, &shaped) == nil {
		if shaped.Message != "" {
			return shaped.Message
		}
		switch e := shaped.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]any:
			if m, ok := e["message"].(string); ok && m != "" {
				return m
			}
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}

// ToFloat32 converts a decoded vector.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// CheckVectors validates a batch embedding response against the request.
func CheckVectors(name string, want int, vecs [][]float32) error {
	if len(vecs) != want {
		return domain.Malformed(name, "got %d vectors for %d texts", len(vecs), want)
	}
	dims := 0
	for i, v := range vecs {
		if len(v) == 0 {
			return domain.Malformed(name, "empty vector at %d", i)
		}
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims {
			return domain.Malformed(name, "vector %d has %d dimensions, want %d", i, len(v), dims)
		}
	}
	return nil
}
