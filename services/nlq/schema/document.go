// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package schema models GraphQL introspection documents and renders them into
// the compact textual description the NLQ pipeline embeds in model prompts.
//
// The document types mirror the standard introspection response shape with
// wrapped-type chains bounded to the depth the introspection query fetches.
// Rendering is deterministic: the same document always formats to the same
// bytes, in document order.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Introspection type kinds this package cares about. Other kinds (SCALAR,
// INTERFACE, UNION) parse fine but are dropped by the formatter.
const (
	KindObject      = "OBJECT"
	KindEnum        = "ENUM"
	KindInputObject = "INPUT_OBJECT"
	KindNonNull     = "NON_NULL"
	KindList        = "LIST"
)

// reservedPrefix marks introspection-internal types (e.g. __Schema, __Type)
// that never appear in formatted output.
const reservedPrefix = "__"

// ErrMissingEnvelope is returned when an introspection document lacks the
// top-level data.__schema envelope.
var ErrMissingEnvelope = errors.New("schema: introspection document missing data.__schema envelope")

// Document is a parsed introspection response.
type Document struct {
	Data struct {
		Schema *Schema `json:"__schema"`
	} `json:"data"`
}

// Schema is the __schema payload of an introspection response.
type Schema struct {
	QueryType        *NamedTypeRef `json:"queryType"`
	MutationType     *NamedTypeRef `json:"mutationType"`
	SubscriptionType *NamedTypeRef `json:"subscriptionType"`
	Types            []Type        `json:"types"`
	Directives       []Directive   `json:"directives"`
}

// NamedTypeRef carries only a type name, used for the root operation types.
type NamedTypeRef struct {
	Name string `json:"name"`
}

// Type is one named entity in the schema.
//
// LIST and NON_NULL kinds never appear at this level in introspection
// responses; wrapper kinds occur only inside TypeRef chains.
type Type struct {
	Kind          string       `json:"kind"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Fields        []Field      `json:"fields"`
	InputFields   []InputValue `json:"inputFields"`
	Interfaces    []TypeRef    `json:"interfaces"`
	EnumValues    []EnumValue  `json:"enumValues"`
	PossibleTypes []TypeRef    `json:"possibleTypes"`
}

// Field is a selectable field on an OBJECT type.
type Field struct {
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	Args              []InputValue `json:"args"`
	Type              *TypeRef     `json:"type"`
	IsDeprecated      bool         `json:"isDeprecated"`
	DeprecationReason string       `json:"deprecationReason"`
}

// InputValue is an argument or an INPUT_OBJECT field.
type InputValue struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Type         *TypeRef `json:"type"`
	DefaultValue *string  `json:"defaultValue"`
}

// EnumValue is one member of an ENUM type.
type EnumValue struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	IsDeprecated      bool   `json:"isDeprecated"`
	DeprecationReason string `json:"deprecationReason"`
}

// TypeRef is a recursive type reference. Wrapper kinds (NON_NULL, LIST)
// carry the wrapped type in OfType; the chain depth is bounded by the
// introspection query, so OfType may be nil even for wrapper kinds.
type TypeRef struct {
	Kind   string   `json:"kind"`
	Name   string   `json:"name"`
	OfType *TypeRef `json:"ofType"`
}

// Directive is a schema directive definition. Parsed for completeness; the
// formatter does not render directives.
type Directive struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Locations   []string     `json:"locations"`
	Args        []InputValue `json:"args"`
}

// Parse decodes a raw introspection response body into a Document.
//
// Description:
//
//	Validates the top-level envelope as part of parsing: a body that decodes
//	but lacks data.__schema returns ErrMissingEnvelope, so a transport-level
//	"success" carrying a malformed payload is still rejected here rather
//	than exploding later during rendering.
//
// Inputs:
//   - raw: The raw response body from an introspection request.
//
// Outputs:
//   - *Document: The parsed document with a non-nil Data.Schema.
//   - error: ErrMissingEnvelope for a missing envelope, or a wrapped JSON
//     error for an undecodable body.
func Parse(raw []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema: parsing introspection document: %w", err)
	}
	if doc.Data.Schema == nil {
		return nil, ErrMissingEnvelope
	}
	return &doc, nil
}
