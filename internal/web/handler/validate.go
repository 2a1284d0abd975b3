package handler

import "github.com/go-playground/validator/v10"

// Validate is the shared request validator.
var Validate = validator.New()
