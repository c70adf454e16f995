// Package validator checks catalog records and API requests. Structural
// rules live in struct tags and are enforced by a shared validator/v10
// instance; catalog-wide rules such as identifier uniqueness are layered on
// top. Failures are reported per field.
package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Recommendation-Platform/pkg/errors"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError holds per-field failure messages. Fields are keyed by a
// path such as "restaurants[3].rating".
type ValidationError struct {
	Fields map[string]string
	order  []string
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if prev, ok := e.Fields[field]; ok {
		e.Fields[field] = prev + "; " + msg
		return
	}
	e.Fields[field] = msg
	e.order = append(e.order, field)
}

func (e *ValidationError) empty() bool {
	return len(e.order) == 0
}

// Messages returns "field: message" lines in the order they were found.
func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.order))
	for _, field := range e.order {
		out = append(out, field+": "+e.Fields[field])
	}
	return out
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		// notblank ships with the library but is not registered by default.
		if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
	})
	return validate
}

// Struct validates any tagged struct and returns a *ValidationError on
// failure.
func Struct(s any) error {
	verr := &ValidationError{}
	collect(verr, "", s)
	if verr.empty() {
		return nil
	}
	return verr
}

// Records validates every record and checks that identifiers are unique.
func Records(records []catalog.Record) error {
	verr := &ValidationError{}
	seen := make(map[string]int, len(records))
	for i := range records {
		prefix := fmt.Sprintf("restaurants[%d]", i)
		collect(verr, prefix, &records[i])
		checkUnique(verr, prefix, records[i].ID, i, seen)
	}
	if verr.empty() {
		return nil
	}
	return verr
}

// LintJSON validates a raw catalog document entry by entry, so that one
// malformed entry does not hide problems in the others. It returns the
// number of entries found and a *ValidationError listing every problem, or a
// plain error when the document itself cannot be parsed.
func LintJSON(data []byte) (int, error) {
	items, err := catalog.SplitItems(data)
	if err != nil {
		return 0, err
	}
	verr := &ValidationError{}
	seen := make(map[string]int, len(items))
	for i, raw := range items {
		prefix := fmt.Sprintf("restaurants[%d]", i)
		rec, err := catalog.DecodeRecord(raw)
		if err != nil {
			field, msg := describeDecodeError(err)
			verr.add(join(prefix, field), msg)
			continue
		}
		collect(verr, prefix, &rec)
		checkUnique(verr, prefix, rec.ID, i, seen)
	}
	if verr.empty() {
		return len(items), nil
	}
	return len(items), verr
}

func checkUnique(verr *ValidationError, prefix, id string, i int, seen map[string]int) {
	if id == "" {
		return
	}
	if first, dup := seen[id]; dup {
		verr.add(prefix+".id", fmt.Sprintf("duplicate id %q (first seen at restaurants[%d])", id, first))
		return
	}
	seen[id] = i
}

func collect(verr *ValidationError, prefix string, s any) {
	err := instance().Struct(s)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		verr.add(join(prefix, ""), err.Error())
		return
	}
	for _, fe := range fieldErrs {
		verr.add(join(prefix, fieldPath(fe)), describe(fe))
	}
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "missing required field"
	case "notblank":
		return "must not be blank"
	case "oneof":
		return fmt.Sprintf("invalid value %v (allowed: %s)", fe.Value(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gte", "min":
		return fmt.Sprintf("must be >= %s, got %v", fe.Param(), fe.Value())
	case "lte", "max":
		return fmt.Sprintf("must be <= %s, got %v", fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func describeDecodeError(err error) (field, msg string) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return "", fmt.Sprintf("must be an object, got %s", typeErr.Value)
		}
		return typeErr.Field, fmt.Sprintf("must be %s, got %s", typeName(typeErr.Type), typeErr.Value)
	}
	return "", err.Error()
}

func typeName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.String:
		return "a string"
	case reflect.Slice:
		return "a list"
	default:
		return t.String()
	}
}

func join(prefix, field string) string {
	switch {
	case prefix == "":
		return field
	case field == "":
		return prefix
	default:
		return prefix + "." + field
	}
}
