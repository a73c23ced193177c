// Package validation holds the field rule table and the file acceptance
// checks shared by the wizard, the registry and the CLI.
package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const RequiredMessage = "This field is required"

// Rule is a declarative field predicate. Every non-zero constraint must
// hold for a value to pass; a zero Rule accepts anything.
type Rule struct {
	Pattern     string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength   int      `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MinInt      *int64   `json:"minInt,omitempty" yaml:"minInt,omitempty"`
	MinLines    int      `json:"minLines,omitempty" yaml:"minLines,omitempty"`
	MinNumber   *float64 `json:"minNumber,omitempty" yaml:"minNumber,omitempty"` // exclusive
	StripSpaces bool     `json:"stripSpaces,omitempty" yaml:"stripSpaces,omitempty"`

	re *regexp.Regexp
}

// Compile prepares the pattern. Check compiles lazily, so calling this is
// only needed to surface a bad pattern early.
func (r *Rule) Compile() error {
	if r.Pattern == "" || r.re != nil {
		return nil
	}
	re, err := regexp.Compile(r.Pattern)
	if err != nil {
		return fmt.Errorf("invalid pattern %q: %w", r.Pattern, err)
	}
	r.re = re
	return nil
}

// Check applies the rule to value. Callers pass the trimmed value.
func (r *Rule) Check(value string) bool {
	if r.StripSpaces {
		value = strings.Join(strings.Fields(value), "")
	}
	if r.Pattern != "" {
		if err := r.Compile(); err != nil {
			return false
		}
		if !r.re.MatchString(value) {
			return false
		}
	}
	if r.MinLength > 0 && len([]rune(value)) < r.MinLength {
		return false
	}
	if r.MinInt != nil {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < *r.MinInt {
			return false
		}
	}
	if r.MinNumber != nil {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= *r.MinNumber {
			return false
		}
	}
	if r.MinLines > 0 && len(strings.Split(value, "\n")) < r.MinLines {
		return false
	}
	return true
}

// FieldRule pairs a predicate with the message shown when it fails.
type FieldRule struct {
	Rule    Rule
	Message string
}

// MinInt and MinNumber build pointer bounds for rule tables.
func MinInt(n int64) *int64         { return &n }
func MinNumber(f float64) *float64 { return &f }

// BaseRules is the rule table for the base (non-dynamic) fields.
// Fields absent from the table only have the required check.
var BaseRules = map[string]*FieldRule{
	"email": {
		Rule:    Rule{Pattern: `^[^\s@]+@[^\s@]+\.[^\s@]+$`},
		Message: "Invalid email address",
	},
	"phone": {
		Rule:    Rule{Pattern: `^[\d\s\-\+\(\)]{10,}$`, StripSpaces: true},
		Message: "Invalid phone number (at least 10 digits)",
	},
	"bankAccountNumber": {
		Rule:    Rule{Pattern: `^[\w\-]{10,34}$`},
		Message: "Invalid bank account number (10-34 characters)",
	},
	"swift": {
		Rule:    Rule{Pattern: `^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`},
		Message: "Invalid SWIFT/BIC code format",
	},
	"currency": {
		Rule:    Rule{Pattern: `^[A-Z]{3}$`},
		Message: "Invalid currency code (3 letters)",
	},
	"annualRevenue": {
		Rule:    Rule{Pattern: `^\d+(\.\d{1,2})?$`, MinNumber: MinNumber(0)},
		Message: "Invalid revenue amount",
	},
	"taxId": {
		Rule:    Rule{Pattern: `^[\w\-/]{5,}$`},
		Message: "Invalid Tax ID format",
	},
	"companyName": {
		Rule:    Rule{MinLength: 3},
		Message: "Company name must be at least 3 characters",
	},
	"registrationNumber": {
		Rule:    Rule{MinLength: 5},
		Message: "Registration number must be at least 5 characters",
	},
}

// ValidateField runs the base rule table. It returns "" when the value is
// acceptable and the user-facing message otherwise.
//
// Required and empty always fails; optional and empty always passes;
// otherwise the predicate runs on the trimmed value.
func ValidateField(name, value string, required bool) string {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return RequiredMessage
		}
		return ""
	}
	rule, ok := BaseRules[name]
	if !ok {
		return ""
	}
	if !rule.Rule.Check(value) {
		return rule.Message
	}
	return ""
}

// ValidateDynamic applies a registry-declared field. label is used for the
// required message and message for a predicate failure.
func ValidateDynamic(rule *Rule, label, message, value string, required bool) string {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return fmt.Sprintf("%s is required", label)
		}
		return ""
	}
	if rule != nil && !rule.Check(value) {
		return message
	}
	return ""
}

func init() {
	for name, r := range BaseRules {
		if err := r.Rule.Compile(); err != nil {
			panic(fmt.Sprintf("validation rule %s: %v", name, err))
		}
	}
}
