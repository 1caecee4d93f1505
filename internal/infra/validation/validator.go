package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ayuxy027/Krishak-AI/internal/domain"
)

// Validator wraps the go-playground validator with custom rules
type Validator struct {
	validator *validator.Validate
}

// New creates a validator that reports fields by their json name.
func New() *Validator {
	return NewWithTagName("json")
}

// NewWithTagName reports fields by the named struct tag, e.g. "env" for configuration.
func NewWithTagName(tagKey string) *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())

	registerCustomValidators(validate)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get(tagKey), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validator: validate}
}

// Violation is one failed rule.
type Violation struct {
	Field   string
	Message string
}

// Check validates a struct and returns every violation, sorted by field.
func (v *Validator) Check(i any) ([]Violation, error) {
	err := v.validator.Struct(i)
	if err == nil {
		return nil, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, err
	}

	out := make([]Violation, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, Violation{Field: fe.Field(), Message: message(fe)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out, nil
}

// Validate returns a *domain.InputError for the first violation, or nil.
func (v *Validator) Validate(i any) error {
	violations, err := v.Check(i)
	if err != nil {
		return &domain.InputError{Field: "request", Message: err.Error()}
	}
	if len(violations) == 0 {
		return nil
	}
	return &domain.InputError{Field: violations[0].Field, Message: violations[0].Message}
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must be numeric", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "image_mime":
		return fmt.Sprintf("%s must be an image media type", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// registerCustomValidators registers custom validation rules
func registerCustomValidators(validate *validator.Validate) {
	// image_mime: image/jpeg, image/png and friends
	_ = validate.RegisterValidation("image_mime", func(fl validator.FieldLevel) bool {
		v := strings.ToLower(strings.TrimSpace(fl.Field().String()))
		return strings.HasPrefix(v, "image/") && len(v) > len("image/")
	})
}
