// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

// Package validation wraps go-playground/validator with the project's
// custom rules and turns its errors into field-level messages that can be
// returned to callers.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError is one failed rule on one field. Field uses the JSON path of
// the offending member, e.g. "seo.canonicalUrl" or "tags[3]".
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"-"`
	Message string `json:"message"`
}

// RequestValidationError collects every failed rule of a request.
type RequestValidationError struct {
	fields []FieldError
}

// New builds a RequestValidationError from explicit field errors, for
// checks that cannot be expressed as struct tags.
func New(fields ...FieldError) *RequestValidationError {
	return &RequestValidationError{fields: fields}
}

func (e *RequestValidationError) Fields() []FieldError {
	return e.fields
}

func (e *RequestValidationError) Error() string {
	if len(e.fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.fields))
	for i, f := range e.fields {
		msgs[i] = f.Message
	}
	return strings.Join(msgs, "; ")
}

// GetValidator returns the shared validator with custom rules registered.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(jsonFieldName)

		// Registration only fails on an empty tag or nil func.
		_ = validate.RegisterValidation("nohtml", noHTML)
		_ = validate.RegisterValidation("httpurl", httpURL)
		_ = validate.RegisterValidation("dateafter", dateAfter)
	})
	return validate
}

// ValidateStruct validates s and returns nil or the collected field errors.
func ValidateStruct(s any) *RequestValidationError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return New(FieldError{Field: "request", Tag: "invalid", Message: err.Error()})
	}

	fields := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		path := fieldPath(fe.Namespace())
		fields[i] = FieldError{Field: path, Tag: fe.Tag(), Message: translate(fe, path)}
	}
	return New(fields...)
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// fieldPath drops the root struct name and embedded struct names from a
// validator namespace.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	kept := parts[:0]
	for _, p := range parts {
		if p == "ContentPayload" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, ".")
}

func noHTML(fl validator.FieldLevel) bool {
	return !strings.ContainsAny(fl.Field().String(), "<>")
}

func httpURL(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// dateAfter passes when the field and the sibling named by the param are
// both set and field >= sibling, or when either is unset.
func dateAfter(fl validator.FieldLevel) bool {
	to, ok := asTime(fl.Field())
	if !ok {
		return true
	}
	parent := reflect.Indirect(fl.Parent())
	if parent.Kind() != reflect.Struct {
		return true
	}
	from, ok := asTime(parent.FieldByName(fl.Param()))
	if !ok {
		return true
	}
	return !to.Before(from)
}

func asTime(v reflect.Value) (time.Time, bool) {
	if !v.IsValid() {
		return time.Time{}, false
	}
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return time.Time{}, false
		}
		v = v.Elem()
	}
	t, ok := v.Interface().(time.Time)
	return t, ok
}

var messageTemplates = map[string]string{
	"required": "%s is required",
	"email":    "%s must be a valid email address",
	"nohtml":   "%s must not contain < or >",
	"httpurl":  "%s must be an http or https URL",
}

func translate(fe validator.FieldError, field string) string {
	if tmpl, ok := messageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, field)
	}

	param := fe.Param()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "dateafter":
		return "dateFrom must be earlier than or equal to dateTo"
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at least %s items", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s items", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
