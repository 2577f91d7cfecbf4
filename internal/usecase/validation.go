package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	domainErrors "github.com/polkiloo/storepay/internal/domain/errors"
	"github.com/polkiloo/storepay/internal/domain/model"
)

// NewValidator returns a validator with checkout rules registered.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New(validatorv10.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(checkoutStructValidation, model.CheckoutInput{})
	return v
}

// checkoutStructValidation requires a resolved delivery location unless the
// customer arranges shipping.
func checkoutStructValidation(sl validatorv10.StructLevel) {
	in := sl.Current().Interface().(model.CheckoutInput)
	if strings.TrimSpace(in.Delivery.Location) == "" && !in.Delivery.SelfArranged {
		sl.ReportError(in.Delivery, "delivery", "Delivery", "delivery_resolved", "")
	}
}

// toValidationError converts validator output into the domain error.
func toValidationError(err error) error {
	var fieldErrs validatorv10.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &domainErrors.ValidationError{Reason: err.Error()}
	}
	fe := fieldErrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return &domainErrors.ValidationError{Field: field, Reason: describeTag(fe)}
}

func describeTag(fe validatorv10.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "delivery_resolved":
		return "a delivery location is required unless shipping is self-arranged"
	}
	return "failed " + fe.Tag() + " check"
}
