package server

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/taskmaster/autotasks/internal/domain/entities"
)

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator builds a validator that reports JSON field names and knows
// the channel_value, task_status, future and tags rules.
func NewValidator() *CustomValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("channel_value", validateChannelValue)
	_ = v.RegisterValidation("task_status", validateTaskStatus)
	_ = v.RegisterValidation("future", validateFuture)
	_ = v.RegisterValidation("tags", validateTags)

	return &CustomValidator{validator: v}
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// validateChannelValue checks the field against the channel type held in the
// sibling field named by the tag parameter.
func validateChannelValue(fl validator.FieldLevel) bool {
	sibling := fl.Parent().FieldByName(fl.Param())
	if !sibling.IsValid() || sibling.Kind() != reflect.String {
		return false
	}

	ct := entities.ChannelType(sibling.String())
	if !ct.IsValid() {
		// reported by the oneof rule on the channel type itself
		return true
	}

	_, err := entities.NormalizeChannelValue(ct, fl.Field().String())
	return err == nil
}

func validateTaskStatus(fl validator.FieldLevel) bool {
	return entities.TaskStatus(fl.Field().String()).IsValid()
}

func validateFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	return t.After(time.Now())
}

func validateTags(fl validator.FieldLevel) bool {
	tags, ok := fl.Field().Interface().([]string)
	if !ok {
		return false
	}
	_, err := entities.NormalizeTags(tags)
	return err == nil
}

var validationMessages = map[string]string{
	"required":      "field required",
	"email":         "value is not a valid email address",
	"min":           "value is too short",
	"max":           "value is too long",
	"oneof":         "value is not one of the allowed values",
	"gt":            "value must be positive",
	"channel_value": "value does not match the channel format",
	"task_status":   "value is not a valid task status",
	"future":        "datetime must be in the future",
	"tags":          "at most 10 non-empty tags of up to 30 characters",
}

func fieldErrorMessage(fe validator.FieldError) string {
	if msg, ok := validationMessages[fe.Tag()]; ok {
		if fe.Param() != "" && (fe.Tag() == "min" || fe.Tag() == "max") {
			return msg + " (" + fe.Tag() + " " + fe.Param() + ")"
		}
		return msg
	}
	return fe.Error()
}
