package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// envelope is the uniform response wrapper. Every JSON response carries it so
// clients can branch on success without inspecting status codes.
type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
	Error   any  `json:"error,omitempty"`
}

// EnvelopeTransformer wraps response bodies in the standard envelope.
// Error bodies produced by the error handler are wrapped under "error",
// everything else under "data".
func EnvelopeTransformer(ctx huma.Context, status string, v any) (any, error) {
	if v == nil {
		return v, nil
	}
	if apiErr, ok := v.(*APIError); ok {
		return &envelope{Success: false, Error: apiErr}, nil
	}
	return &envelope{Success: true, Data: v}, nil
}
