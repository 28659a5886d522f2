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
	"fmt"
	"strings"
)

// Format renders a parsed introspection document into the plain-text schema
// description embedded in model prompts.
//
// Description:
//
//	Walks the document's types in document order and emits one block per
//	OBJECT, ENUM, or INPUT_OBJECT type, skipping introspection-internal
//	types (names with the "__" prefix). Each block lists the type's
//	description, fields, enum values, and input fields; sections with no
//	entries are omitted entirely. The output is a pure function of the
//	document, so repeated calls yield byte-identical strings.
//
// Inputs:
//   - doc: A parsed document with a non-nil Data.Schema.
//
// Outputs:
//   - string: The formatted description, starting with the
//     "GraphQL Schema Types:" header.
//   - error: Non-nil if doc is nil or lacks a schema payload.
func Format(doc *Document) (string, error) {
	if doc == nil || doc.Data.Schema == nil {
		return "", fmt.Errorf("schema: format: %w", ErrMissingEnvelope)
	}

	var b strings.Builder
	b.WriteString("GraphQL Schema Types:\n\n")

	for _, t := range doc.Data.Schema.Types {
		if strings.HasPrefix(t.Name, reservedPrefix) {
			continue
		}
		if t.Kind != KindObject && t.Kind != KindEnum && t.Kind != KindInputObject {
			continue
		}

		fmt.Fprintf(&b, "Type: %s (%s)\n", t.Name, t.Kind)
		if t.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", t.Description)
		}

		if len(t.Fields) > 0 {
			b.WriteString("Fields:\n")
			writeFieldLines(&b, t.Fields)
		}

		if len(t.EnumValues) > 0 {
			b.WriteString("Values:\n")
			for _, v := range t.EnumValues {
				fmt.Fprintf(&b, "  - %s\n", v.Name)
			}
		}

		if len(t.InputFields) > 0 {
			b.WriteString("Input Fields:\n")
			writeInputLines(&b, t.InputFields)
		}

		b.WriteString("\n")
	}

	return b.String(), nil
}

func writeFieldLines(b *strings.Builder, fields []Field) {
	for _, f := range fields {
		fmt.Fprintf(b, "  - %s: %s\n", f.Name, RenderTypeRef(f.Type))
		if f.Description != "" {
			fmt.Fprintf(b, "    Description: %s\n", f.Description)
		}
	}
}

func writeInputLines(b *strings.Builder, fields []InputValue) {
	for _, f := range fields {
		fmt.Fprintf(b, "  - %s: %s\n", f.Name, RenderTypeRef(f.Type))
		if f.Description != "" {
			fmt.Fprintf(b, "    Description: %s\n", f.Description)
		}
	}
}

// RenderTypeRef renders a type reference chain in GraphQL notation:
// NON_NULL wrappers append "!", LIST wrappers add brackets, and named types
// render as their name (or bare kind when the name is empty).
//
// A wrapper whose inner type lies beyond the depth the introspection query
// fetched renders as its own bare name or kind instead of recursing past the
// end of the chain.
func RenderTypeRef(ref *TypeRef) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case KindNonNull:
		if ref.OfType != nil {
			return RenderTypeRef(ref.OfType) + "!"
		}
	case KindList:
		if ref.OfType != nil {
			return "[" + RenderTypeRef(ref.OfType) + "]"
		}
	}
	if ref.Name != "" {
		return ref.Name
	}
	return ref.Kind
}
