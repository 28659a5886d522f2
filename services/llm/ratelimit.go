// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitedClient enforces a requests-per-minute cap in front of another
// ChatClient.
//
// Description:
//
//	Uses a token bucket refilled at the configured per-minute rate with a
//	burst of one, so calls above the cap queue rather than fail. Waiting is
//	context-aware: cancellation or deadline expiry while queued surfaces as
//	an error from Chat without invoking the wrapped client.
//
// Thread Safety: Safe for concurrent use.
type RateLimitedClient struct {
	inner   ChatClient
	limiter *rate.Limiter
}

// WithRateLimit wraps a ChatClient with a requests-per-minute cap.
//
// Inputs:
//   - inner: The client to wrap.
//   - requestsPerMinute: The cap. Zero or negative disables limiting and
//     returns inner unchanged.
//
// Outputs:
//   - ChatClient: The wrapped client, or inner when no cap applies.
func WithRateLimit(inner ChatClient, requestsPerMinute int) ChatClient {
	if requestsPerMinute <= 0 {
		return inner
	}
	return &RateLimitedClient{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), 1),
	}
}

// Chat implements ChatClient, blocking until a slot is available.
func (r *RateLimitedClient) Chat(ctx context.Context, messages []Message, params GenerationParams) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("llm: rate limit wait aborted: %w", err)
	}
	return r.inner.Chat(ctx, messages, params)
}
