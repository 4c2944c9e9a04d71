// Package validation evaluates declarative field rules against form values.
//
// Each field yields at most one error. Checks run in a fixed order and the
// first failure wins:
//
//  1. required   (empty or whitespace-only value)
//  2. minLength / maxLength (non-empty values only, counted in runes)
//  3. pattern    (non-empty values only)
//  4. custom     (non-empty values only)
//  5. match      (only when 1–4 passed and a confirm value is supplied)
//
// Everything here is a pure function of its inputs.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dmitrijs2005/gophsignin/internal/common"
	"github.com/go-playground/validator/v10"
)

// lengths runs the min/max checks; its string lengths are rune counts.
var lengths = validator.New()

type Kind string

const (
	KindRequired  Kind = "required"
	KindMinLength Kind = "minLength"
	KindMaxLength Kind = "maxLength"
	KindPattern   Kind = "pattern"
	KindCustom    Kind = "custom"
	KindMatch     Kind = "match"
)

// Rule describes the constraints of one field. Zero values disable a check.
// Match names another field whose value this one must equal; ValidateForm
// uses it to supply the confirm value.
type Rule struct {
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Custom    func(value string) bool
	Match     string
	Message   string
}

// Rules maps field names to their rule.
type Rules map[string]Rule

type FieldError struct {
	Kind    Kind
	Message string
}

func (e *FieldError) Error() string { return e.Message }

// ValidateField checks value against rule. confirm is the value a
// confirmation field must equal, or nil when there is none.
func ValidateField(value string, rule Rule, confirm *string) *FieldError {
	empty := strings.TrimSpace(value) == ""

	if rule.Required && empty {
		return rule.fail(KindRequired, "This field is required")
	}

	if !empty {
		if rule.MinLength > 0 && !lengthOK(value, "min", rule.MinLength) {
			return rule.fail(KindMinLength, fmt.Sprintf("Must be at least %d characters", rule.MinLength))
		}
		if rule.MaxLength > 0 && !lengthOK(value, "max", rule.MaxLength) {
			return rule.fail(KindMaxLength, fmt.Sprintf("Must be at most %d characters", rule.MaxLength))
		}
		if rule.Pattern != nil && !rule.Pattern.MatchString(value) {
			return rule.fail(KindPattern, "Invalid format")
		}
		if rule.Custom != nil && !rule.Custom(value) {
			return rule.fail(KindCustom, "Invalid value")
		}
	}

	if confirm != nil && value != *confirm {
		return rule.fail(KindMatch, "Values do not match")
	}
	return nil
}

func lengthOK(value, tag string, n int) bool {
	return lengths.Var(value, fmt.Sprintf("%s=%d", tag, n)) == nil
}

func (r Rule) fail(kind Kind, fallback string) *FieldError {
	msg := r.Message
	if msg == "" {
		msg = fallback
	}
	return &FieldError{Kind: kind, Message: msg}
}

// ValidateForm validates every field named in rules. The returned map holds
// an entry only for failing fields; valid is true iff it is empty.
func ValidateForm(values map[string]string, rules Rules) (map[string]*FieldError, bool) {
	errs := make(map[string]*FieldError)
	for field, rule := range rules {
		if fe := ValidateField(values[field], rule, confirmFor(values, rule)); fe != nil {
			errs[field] = fe
		}
	}
	return errs, len(errs) == 0
}

// ValidateOne validates a single field of a form, resolving its Match target.
func ValidateOne(values map[string]string, rules Rules, field string) *FieldError {
	rule, ok := rules[field]
	if !ok {
		return nil
	}
	return ValidateField(values[field], rule, confirmFor(values, rule))
}

func confirmFor(values map[string]string, rule Rule) *string {
	if rule.Match == "" {
		return nil
	}
	v := values[rule.Match]
	return &v
}

// ValidationError carries the per-field failures of a rejected form.
// It matches common.ErrValidation.
type ValidationError struct {
	Fields map[string]*FieldError
}

func NewValidationError(fields map[string]*FieldError) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name].Message)
	}
	return "Please fix: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == common.ErrValidation
}
