// Package wire holds the HTTP plumbing shared by the model providers.
package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/loom/pkg/fault"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/pkg/utils"
)

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 120 * time.Second

// maxErrorBody is how much of a failed response body is kept in the error.
const maxErrorBody = 512

// StatusError is a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth retrying: rate limits,
// timeouts and server errors.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= 500
}

// NewClient returns c, or a client with DefaultTimeout when c is nil.
func NewClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: DefaultTimeout}
}

// PostJSON sends in as a JSON POST to url and decodes the response into out.
//
// Failures are *fault.Error values: network errors and retryable statuses are
// KindTransient, other statuses KindContract, undecodable bodies
// KindMalformedOutput. Context errors are KindCanceled.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, in, out any) error {
	const op = "provider.post"

	body, err := json.Marshal(in)
	if err != nil {
		return fault.New(fault.KindContract, op, fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fault.New(fault.KindContract, op, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fault.New(fault.KindCanceled, op, ctxErr)
		}
		return fault.New(fault.KindTransient, op, fmt.Errorf("send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody*4))
		se := &StatusError{StatusCode: resp.StatusCode, Body: utils.Clip(string(raw), maxErrorBody)}
		if se.Retryable() {
			return fault.New(fault.KindTransient, op, se)
		}
		return fault.New(fault.KindContract, op, se)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fault.New(fault.KindCanceled, op, err)
		}
		return fault.New(fault.KindMalformedOutput, op, fmt.Errorf("decode response: %w", err))
	}

	return nil
}

// Parameters returns p, or an empty object schema when p is empty.
func Parameters(p json.RawMessage) json.RawMessage {
	if len(p) == 0 {
		return llm.EmptyParameters
	}
	return p
}
