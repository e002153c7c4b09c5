/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

// Package testmodels holds shared model types for store tests.
package testmodels

import "github.com/go-openapi/strfmt"

// Profile is a typical document stored by the typed layer.
type Profile struct {
	ID        *string          `json:"id,omitempty"`
	Email     *string          `json:"email,omitempty"`
	Age       int64            `json:"age,omitempty"`
	Tags      []string         `json:"tags,omitempty"`
	CreatedAt *strfmt.DateTime `json:"createdAt,omitempty"`
	UpdatedAt *strfmt.DateTime `json:"updatedAt,omitempty"`
}
