// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data:
// bounded query parameters, JSON bodies and bodies that may arrive either as
// JSON or as a form.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"wealthtrack/internal/core"
)

const maxBodyBytes = 1 << 20

// Query parameter bounds.
const (
	MaxRankingLimit = 20
	MinMaturityDays = 1
	MaxMaturityDays = 365
	DefaultDays     = 30
	MinTrendDays    = 7
	MaxTrendDays    = 365
	MinYear         = 1900
	MaxYear         = 2100
)

// QueryParser reads typed query parameters. Every rejected parameter is
// collected so one response can report all of them.
type QueryParser struct {
	values url.Values
	errs   []FieldError
}

func NewQueryParser(r *http.Request) *QueryParser {
	return &QueryParser{values: r.URL.Query()}
}

func (q *QueryParser) fail(name, format string, args ...any) {
	q.errs = append(q.errs, FieldError{Field: name, Message: fmt.Sprintf(format, args...)})
}

func (q *QueryParser) raw(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

// Int returns the named integer, def when absent. Values outside
// [min, max] are rejected.
func (q *QueryParser) Int(name string, def, min, max int) int {
	v := q.OptionalInt(name, min, max)
	if v == nil {
		return def
	}
	return *v
}

// OptionalInt is Int without a default: absent or rejected values give nil.
func (q *QueryParser) OptionalInt(name string, min, max int) *int {
	s := q.raw(name)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		q.fail(name, "must be an integer")
		return nil
	}
	if n < min || n > max {
		q.fail(name, "must be between %d and %d", min, max)
		return nil
	}
	return &n
}

// Skip returns the non-negative "skip" offset.
func (q *QueryParser) Skip() int {
	s := q.raw("skip")
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		q.fail("skip", "must be a non-negative integer")
		return 0
	}
	return n
}

func (q *QueryParser) Date(name string) *core.Date {
	s := q.raw(name)
	if s == "" {
		return nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		q.fail(name, "must be a date in YYYY-MM-DD format")
		return nil
	}
	return &d
}

func (q *QueryParser) Category(name string) *core.Category {
	s := q.raw(name)
	if s == "" {
		return nil
	}
	c, err := core.ParseCategory(s)
	if err != nil {
		q.fail(name, "%s", validationMessage(err))
		return nil
	}
	return &c
}

func (q *QueryParser) AssetType(name string) *core.AssetType {
	s := q.raw(name)
	if s == "" {
		return nil
	}
	a, err := core.ParseAssetType(s)
	if err != nil {
		q.fail(name, "%s", validationMessage(err))
		return nil
	}
	return &a
}

func (q *QueryParser) String(name string) string {
	return sanitizeInput(q.values.Get(name))
}

// Err returns a *RequestValidationError when any parameter was rejected.
func (q *QueryParser) Err() error {
	if len(q.errs) == 0 {
		return nil
	}
	return &RequestValidationError{Fields: q.errs}
}

func validationMessage(err error) string {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}

// decodeJSON reads one JSON value from the request body into dst. Syntax
// problems are bad requests; values of the wrong shape are validation
// failures.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return badRequest("request body is empty")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return badRequest("request body is not valid JSON")
		case errors.As(err, &maxErr):
			return badRequest("request body is too large")
		case errors.As(err, &typeErr):
			field := typeErr.Field
			if field == "" {
				field = "body"
			}
			if typeErr.Type == core.DateType {
				return core.Invalid(field, "must be a date in YYYY-MM-DD format")
			}
			return core.Invalid(field, "must be of type %s", jsonTypeName(typeErr.Type.String()))
		default:
			return core.Invalid("body", "%s", err.Error())
		}
	}
	return nil
}

func jsonTypeName(goType string) string {
	switch {
	case strings.HasPrefix(goType, "[]"):
		return "array"
	case strings.HasPrefix(goType, "int"), strings.HasPrefix(goType, "float"):
		return "number"
	case goType == "string", strings.HasPrefix(goType, "core."):
		return "string"
	case goType == "bool":
		return "boolean"
	default:
		return "object"
	}
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, core.Invalid("id", "must be a valid identifier")
	}
	return id, nil
}

// RequestBodyParser handles different content types for request body parsing.
// It supports both JSON and form-encoded data.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser creates a parser for the given request.
// It reads the body once and stores it for subsequent parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}

	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	// Try JSON first if content looks like JSON
	if p.body[0] == '{' || strings.HasPrefix(p.contentType, "application/json") {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	// Fall back to form parsing
	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// stringValue converts an interface{} to string.
func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
