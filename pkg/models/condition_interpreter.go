// Package models provides predicate evaluation for condition steps
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Condition operators understood by the interpreter.
const (
	OpEquals    = "eq"
	OpNotEquals = "neq"
	OpGt        = "gt"
	OpGte       = "gte"
	OpLt        = "lt"
	OpLte       = "lte"
	OpContains  = "contains"
	OpExists    = "exists"
	OpHasTag    = "has_tag"
	OpNotHasTag = "not_has_tag"
)

// ConditionInterpreter evaluates a single {field, operator, value} predicate
// against the execution context and contact attributes. Evaluation is pure
// and deterministic.
type ConditionInterpreter struct{}

// Evaluate resolves the field, applies the operator and returns the result.
func (ConditionInterpreter) Evaluate(ectx ExecutionContext, field, operator string, expected any) (bool, error) {
	switch operator {
	case OpHasTag:
		if ectx.Contact == nil {
			return false, nil
		}

		return ectx.Contact.HasTag(fmt.Sprintf("%v", expected)), nil
	case OpNotHasTag:
		if ectx.Contact == nil {
			return true, nil
		}

		return !ectx.Contact.HasTag(fmt.Sprintf("%v", expected)), nil
	}

	actual, found := resolveField(ectx, field)

	if operator == OpExists {
		return found, nil
	}

	if !found {
		return false, nil
	}

	switch operator {
	case OpEquals:
		return fmt.Sprintf("%v", actual) == fmt.Sprintf("%v", expected), nil
	case OpNotEquals:
		return fmt.Sprintf("%v", actual) != fmt.Sprintf("%v", expected), nil
	case OpContains:
		return strings.Contains(fmt.Sprintf("%v", actual), fmt.Sprintf("%v", expected)), nil
	case OpGt, OpGte, OpLt, OpLte:
		return compareNumeric(operator, actual, expected)
	default:
		return false, fmt.Errorf("unsupported condition operator %q", operator)
	}
}

// resolveField looks up a dotted field path. Supported prefixes are
// "contact." (attributes plus email/phone), "trigger." and "context.";
// a bare key is resolved against the accumulated context.
func resolveField(ectx ExecutionContext, field string) (any, bool) {
	switch {
	case strings.HasPrefix(field, "contact."):
		key := strings.TrimPrefix(field, "contact.")
		if ectx.Contact == nil {
			return nil, false
		}

		switch key {
		case "email":
			return ectx.Contact.Email, true
		case "phone":
			return ectx.Contact.Phone, true
		}

		v, ok := ectx.Contact.Attributes[key]

		return v, ok
	case strings.HasPrefix(field, "trigger."):
		v, ok := ectx.TriggerData[strings.TrimPrefix(field, "trigger.")]

		return v, ok
	case strings.HasPrefix(field, "context."):
		v, ok := ectx.Data[strings.TrimPrefix(field, "context.")]

		return v, ok
	default:
		v, ok := ectx.Data[field]

		return v, ok
	}
}

func compareNumeric(operator string, actual, expected any) (bool, error) {
	a, err := toFloat(actual)
	if err != nil {
		return false, err
	}

	b, err := toFloat(expected)
	if err != nil {
		return false, err
	}

	switch operator {
	case OpGt:
		return a > b, nil
	case OpGte:
		return a >= b, nil
	case OpLt:
		return a < b, nil
	case OpLte:
		return a <= b, nil
	default:
		return false, fmt.Errorf("unsupported numeric operator %q", operator)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert string %q to number: %w", n, err)
		}

		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to number", v)
	}
}
