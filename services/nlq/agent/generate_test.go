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

import "testing"

func TestCleanGeneratedQuery(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "BareQueryUntouched",
			raw:      "query { jobs { totalCount } }",
			expected: "query { jobs { totalCount } }",
		},
		{
			name:     "GraphQLFence",
			raw:      "```graphql\nquery { jobs { totalCount } }\n```",
			expected: "query { jobs { totalCount } }",
		},
		{
			name:     "PlainFence",
			raw:      "```\nquery { jobs { totalCount } }\n```",
			expected: "query { jobs { totalCount } }",
		},
		{
			name:     "SurroundingWhitespace",
			raw:      "\n\n  query { jobs { totalCount } }  \n",
			expected: "query { jobs { totalCount } }",
		},
		{
			name:     "FenceWithTrailingProse",
			raw:      "```graphql\nquery { jobs { totalCount } }\n```\n",
			expected: "query { jobs { totalCount } }",
		},
		{
			name:     "Empty",
			raw:      "",
			expected: "",
		},
		{
			name:     "OnlyFences",
			raw:      "```graphql\n```",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanGeneratedQuery(tt.raw); got != tt.expected {
				t.Errorf("CleanGeneratedQuery(%q) = %q, want %q", tt.raw, got, tt.expected)
			}
		})
	}
}
