package common

import "github.com/go-playground/validator/v10"

// Validate checks `validate` struct tags on request payloads.
var Validate = validator.New()
