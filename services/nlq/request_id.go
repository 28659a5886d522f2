// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package nlq

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// requestIDHeader is the header request IDs are read from and echoed
	// into.
	requestIDHeader = "X-Request-ID"

	// requestIDContextKey is the gin context key the resolved ID is
	// stored under.
	requestIDContextKey = "request_id"
)

// RequestIDMiddleware resolves a request ID for every request.
//
// Description:
//
//	Honors an X-Request-ID header when the client sends one, generates a
//	UUID otherwise, stores the ID in the gin context, and echoes it in
//	the response header so clients can correlate logs.
//
// Thread Safety: The returned middleware is safe for concurrent use.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDContextKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// getOrCreateRequestID returns the request's ID, resolving one on the spot
// when the middleware did not run (direct handler tests, bare routers).
func getOrCreateRequestID(c *gin.Context) string {
	if v, ok := c.Get(requestIDContextKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}

	id := c.GetHeader(requestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDContextKey, id)
	c.Header(requestIDHeader, id)
	return id
}
