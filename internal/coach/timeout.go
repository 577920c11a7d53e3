package coach

import (
	"context"
	"time"
)

// TimeoutLLMClient bounds every completion with a deadline so a slow
// provider cannot hold a chat turn open indefinitely.
type TimeoutLLMClient struct {
	inner   LLMClient
	timeout time.Duration
}

// NewTimeoutLLMClient wraps client with a per-request deadline. A
// non-positive timeout returns the client unwrapped.
func NewTimeoutLLMClient(client LLMClient, timeout time.Duration) LLMClient {
	if timeout <= 0 {
		return client
	}
	return &TimeoutLLMClient{inner: client, timeout: timeout}
}

func (c *TimeoutLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Complete(ctx, req)
}
