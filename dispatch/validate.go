package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a package-level singleton; constructing a validator per call is
// expensive and struct-tag caching makes reuse safe across goroutines.
var validate = validator.New()

// NewValidatingJSONHandler wraps a typed HostFunc like NewJSONHandler, but
// runs go-playground/validator struct-tag validation against the decoded
// request before invoking fn. A validation failure short-circuits fn and
// returns a VALIDATION_ERROR ErrorResponse as response data with a nil
// error; a payload that does not unmarshal returns a Go error instead.
func NewValidatingJSONHandler[Req any, Resp any](fn HostFunc[Req, Resp]) ByteHandler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var req Req
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request: %w", err)
		}

		if err := validate.Struct(req); err != nil {
			return NewValidationError(err.Error()).ToJSON(), nil
		}

		resp := fn(ctx, req)

		respBytes, err := json.Marshal(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response: %w", err)
		}
		return respBytes, nil
	}
}
