// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package collector

import (
	"errors"
	"reflect"
	"strings"

	"github.com/Qchains/gtelegram/internal/errs"
	"github.com/go-playground/validator/v10"
)

// Config controls how the buffer normalizes, validates and reports items
type Config struct {
	BufferSize   int  `json:"buffer_size" mapstructure:"buffer_size" validate:"gt=0,lte=100000"`
	StrictMode   bool `json:"strict_mode" mapstructure:"strict_mode"`
	CommentStrip bool `json:"comment_strip" mapstructure:"comment_strip"`
	ReverseOrder bool `json:"reverse_order" mapstructure:"reverse_order"`
}

// DefaultConfig returns the collector defaults
func DefaultConfig() Config {
	return Config{
		BufferSize:   100,
		StrictMode:   false,
		CommentStrip: true,
		ReverseOrder: true,
	}
}

// Validate checks the configuration bounds
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fieldErrors("invalid collector configuration", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report json names so callers can match errors to their payload
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// fieldErrors converts validator output into a validation error with per-field details
func fieldErrors(message string, err error) *errs.Error {
	verr := errs.Validation(message)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return verr.WithField("payload", err.Error())
	}

	for _, e := range validationErrors {
		verr.WithField(e.Field(), describe(e))
	}
	return verr
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	case "max":
		return "must be at most " + e.Param() + " long"
	default:
		return "is invalid"
	}
}
