package crud

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dennislaw/svd-console/internal/apiclient"
)

var (
	looseEmailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9][0-9\s\-()]{6,19}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("looseemail", func(fl validator.FieldLevel) bool {
		return looseEmailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks submitted values against the field rules and returns the
// message per failing field. Create-only fields are skipped on update.
func (r Resource) Validate(values map[string]string, creating bool) map[string]string {
	errs := make(map[string]string)
	for _, f := range r.Fields {
		if f.Rules == "" || (f.CreateOnly && !creating) {
			continue
		}
		err := validate.Var(strings.TrimSpace(values[f.Name]), f.Rules)
		if err == nil {
			continue
		}
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			errs[f.Name] = f.message(verrs[0].Tag(), verrs[0].Param())
			continue
		}
		errs[f.Name] = f.Title() + " is invalid"
	}
	return errs
}

func (f Field) message(tag, param string) string {
	switch tag {
	case "required":
		return f.Title() + " is required"
	case "looseemail", "email":
		return "Enter a valid email address"
	case "phone":
		return "Enter a valid phone number"
	case "min":
		return f.Title() + " must be at least " + param + " characters"
	case "max":
		return f.Title() + " must be at most " + param + " characters"
	case "oneof":
		return f.Title() + " must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "numeric", "number":
		return f.Title() + " must be a number"
	}
	return f.Title() + " is invalid"
}

// Payload converts submitted values into the JSON body sent to the API.
func (r Resource) Payload(values map[string]string, creating bool) map[string]any {
	out := make(map[string]any, len(r.Fields))
	for _, f := range r.Fields {
		if f.CreateOnly && !creating {
			continue
		}
		raw := values[f.Name]
		if f.Type != FieldPassword {
			raw = strings.TrimSpace(raw)
		}
		switch f.Type {
		case FieldCheckbox:
			out[f.Name] = raw == "on" || raw == "true" || raw == "1"
		case FieldPassword:
			if raw != "" {
				out[f.Name] = raw
			}
		case FieldNumber:
			if raw == "" {
				out[f.Name] = nil
				continue
			}
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				out[f.Name] = n
				continue
			}
			out[f.Name] = raw
		default:
			out[f.Name] = raw
		}
	}
	return out
}

// FormValues pre-fills the edit form from a record.
func (r Resource) FormValues(rec apiclient.Record) map[string]string {
	values := make(map[string]string, len(r.Fields))
	for _, f := range r.Fields {
		switch f.Type {
		case FieldPassword:
			continue
		case FieldCheckbox:
			if rec.Bool(f.Name) {
				values[f.Name] = "on"
			}
		default:
			values[f.Name] = rec.String(f.Name)
		}
	}
	return values
}
