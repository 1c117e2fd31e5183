package rpc

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"

	"github.com/davitrie/userbase/pkg/validation"
)

// SchemaFor builds a Schema that decodes raw JSON into T and validates it
// with the shared validator. An empty body decodes T's zero value so
// procedures with all-optional inputs accept missing bodies.
func SchemaFor[T any](v *validator.Validate) Schema {
	return func(raw json.RawMessage) (any, *Error) {
		var in T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &in); err != nil {
				return nil, BadRequest("invalid input", validation.ToDetails(err))
			}
		}
		if err := v.Struct(&in); err != nil {
			return nil, BadRequest("invalid input", validation.ToDetails(err))
		}
		return in, nil
	}
}
