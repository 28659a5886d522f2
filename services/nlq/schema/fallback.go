// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package schema

import (
	_ "embed"
)

// =============================================================================
// Embedded Fallback Schema Description
// =============================================================================

//go:embed fallback_schema.txt
var fallbackSchemaText string

// FallbackDescription returns the hand-maintained schema description used
// when live introspection is unavailable or returns a malformed document.
//
// Description:
//
//	The text covers the JobLogic API surface the pipeline targets: the Job,
//	Customer, Site, and Asset entities, their paged list results, the root
//	query signatures with paging defaults, and the ordering enums. It is
//	intentionally a frozen snapshot; drift from the live schema is the
//	accepted cost of staying answerable while the upstream API is down.
//
// Outputs:
//   - string: The fallback description. Never empty.
//
// Thread Safety: Safe for concurrent use; returns an immutable embedded string.
func FallbackDescription() string {
	return fallbackSchemaText
}
