package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/Ayash-Bera/placefinder/backend/internal/models"
	"github.com/go-playground/validator/v10"
)

// NonFieldErrors is the key used for problems with the body as a whole.
const NonFieldErrors = "non_field_errors"

const (
	msgRequired      = "this field is required"
	msgNull          = "this field may not be null"
	msgBlank         = "this field may not be blank"
	msgTooLong       = "ensure this field has no more than 255 characters"
	msgString        = "a valid string is required"
	msgNumber        = "a valid number is required"
	msgInteger       = "a valid integer is required"
	msgRadiusTooLow  = "radius must be greater than zero"
	msgRadiusTooHigh = "radius must not exceed 50000"
)

// ValidationError maps each offending field to its reasons.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e.Fields[k], ", ")))
	}
	return "invalid search request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], reason)
}

func (e *ValidationError) has(field string) bool {
	_, ok := e.Fields[field]
	return ok
}

type searchInput struct {
	Query     *string  `json:"query" validate:"required,min=1,max=255"`
	Latitude  *float64 `json:"latitude" validate:"required"`
	Longitude *float64 `json:"longitude" validate:"required"`
	Radius    *int     `json:"radius" validate:"omitempty,gt=0,lte=50000"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateSearchRequest turns a raw request body into normalized search
// parameters. On failure it returns a *ValidationError listing every
// offending field.
func ValidateSearchRequest(body []byte) (models.SearchParams, error) {
	verr := &ValidationError{}

	raw, err := decodeObject(body)
	if err != nil {
		verr.add(NonFieldErrors, err.Error())
		return models.SearchParams{}, verr
	}

	var input searchInput
	input.Query = decodeString(raw, "query", verr)
	input.Latitude = decodeNumber(raw, "latitude", verr)
	input.Longitude = decodeNumber(raw, "longitude", verr)
	input.Radius = decodeInteger(raw, "radius", verr)

	if input.Query != nil {
		trimmed := strings.TrimSpace(*input.Query)
		input.Query = &trimmed
	}

	if err := validate.Struct(input); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return models.SearchParams{}, fmt.Errorf("failed to validate search request: %w", err)
		}
		for _, fe := range fieldErrs {
			if verr.has(fe.Field()) {
				continue
			}
			verr.add(fe.Field(), describe(fe))
		}
	}

	if len(verr.Fields) > 0 {
		return models.SearchParams{}, verr
	}

	params := models.SearchParams{
		Query:     *input.Query,
		Latitude:  *input.Latitude,
		Longitude: *input.Longitude,
		Radius:    models.DefaultRadius,
	}
	if input.Radius != nil {
		params.Radius = *input.Radius
	}
	return params, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("no data provided")
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("invalid data, expected a JSON object")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("JSON parse error: %v", err)
	}
	return raw, nil
}

// present returns the raw value of field, recording a null. Missing fields
// are left to the required rule.
func present(raw map[string]json.RawMessage, field string, verr *ValidationError) (json.RawMessage, bool) {
	value, ok := raw[field]
	if !ok {
		return nil, false
	}
	if bytes.Equal(bytes.TrimSpace(value), []byte("null")) {
		verr.add(field, msgNull)
		return nil, false
	}
	return value, true
}

func decodeString(raw map[string]json.RawMessage, field string, verr *ValidationError) *string {
	value, ok := present(raw, field, verr)
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		verr.add(field, msgString)
		return nil
	}
	return &s
}

func decodeNumber(raw map[string]json.RawMessage, field string, verr *ValidationError) *float64 {
	value, ok := present(raw, field, verr)
	if !ok {
		return nil
	}
	var f float64
	if err := json.Unmarshal(value, &f); err != nil {
		verr.add(field, msgNumber)
		return nil
	}
	return &f
}

func decodeInteger(raw map[string]json.RawMessage, field string, verr *ValidationError) *int {
	value, ok := present(raw, field, verr)
	if !ok {
		return nil
	}
	var f float64
	if err := json.Unmarshal(value, &f); err != nil || f != math.Trunc(f) {
		verr.add(field, msgInteger)
		return nil
	}
	// Huge values are clamped so the range rules still report them.
	f = math.Max(math.MinInt32, math.Min(f, math.MaxInt32))
	i := int(f)
	return &i
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return msgRequired
	case "min":
		return msgBlank
	case "max":
		return msgTooLong
	case "gt":
		return msgRadiusTooLow
	case "lte":
		return msgRadiusTooHigh
	}
	return fmt.Sprintf("failed on the %q rule", fe.Tag())
}
