// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import "strings"

// CleanGeneratedQuery strips code-fence markup from a model completion,
// leaving the bare executable query text.
//
// Description:
//
//	Models often wrap generated queries in ```graphql fences despite being
//	told not to. Removal is textual: every ```graphql and ``` marker is
//	dropped wherever it appears, then the remainder is whitespace-trimmed.
//	The longer marker is removed first so a ```graphql opener is not split
//	into a stray "graphql" token.
func CleanGeneratedQuery(raw string) string {
	q := strings.TrimSpace(raw)
	q = strings.ReplaceAll(q, "```graphql", "")
	q = strings.ReplaceAll(q, "```", "")
	return strings.TrimSpace(q)
}
