package http

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"

	"wealthtrack/internal/core"
)

// RequestValidationError carries every field a request body failed on.
// It matches core.ErrValidation with errors.Is.
type RequestValidationError struct {
	Fields []FieldError
}

func (e *RequestValidationError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, ", ")
}

func (e *RequestValidationError) Unwrap() error {
	return core.ErrValidation
}

// Validator checks decoded request bodies against their validate tags and
// reports failures by JSON field name with English messages.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func NewValidator() *Validator {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Decimals compare as numbers and dates as times, so gte/gt/required
	// work on them directly.
	validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	validate.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(core.Date); ok {
			return d.Time
		}
		return nil
	}, core.Date{})

	_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return core.Category(fl.Field().String()).Valid()
	})
	_ = validate.RegisterValidation("asset_type", func(fl validator.FieldLevel) bool {
		return core.AssetType(fl.Field().String()).Valid()
	})

	eng := en.New()
	uni := ut.New(eng, eng)
	trans, _ := uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, trans)
	registerEnumTranslation(validate, trans, "category", enumNames(core.Categories()))
	registerEnumTranslation(validate, trans, "asset_type", enumNames(core.AssetTypes()))

	return &Validator{validate: validate, trans: trans}
}

func registerEnumTranslation(validate *validator.Validate, trans ut.Translator, tag, names string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(t ut.Translator) error {
			return t.Add(tag, "{0} must be one of: "+names, true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field())
			return msg
		})
}

func enumNames[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

// Struct validates s. It returns nil or a *RequestValidationError.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: fe.Translate(v.trans)})
	}
	return &RequestValidationError{Fields: fields}
}
