package segmentation

import (
	"errors"
	"fmt"
)

// Errors returned by rule compilation and resolution.
var (
	ErrUnknownField    = errors.New("unknown segment field")
	ErrInvalidOperator = errors.New("operator not valid for field type")
	ErrEmptyRuleSet    = errors.New("rule set must contain at least one rule")
)

// FieldType classifies a queryable customer attribute.
type FieldType string

const (
	FieldNumber FieldType = "number"
	FieldString FieldType = "string"
	FieldDate   FieldType = "date"
	FieldBool   FieldType = "boolean"
)

// Operator is a comparison operator accepted in segment rules.
type Operator string

const (
	OpGt       Operator = ">"
	OpLt       Operator = "<"
	OpGte      Operator = ">="
	OpLte      Operator = "<="
	OpEquals   Operator = "=="
	OpNotEqual Operator = "!="
	OpContains Operator = "contains"
)

// FieldMeta describes a single entry of the field allow-list: the
// column it maps to and the type that decides operator validity.
type FieldMeta struct {
	Column string
	Type   FieldType
}

// fieldTable is the closed allow-list of queryable fields. Rules
// naming any field outside this table are rejected, never passed
// through to SQL.
var fieldTable = map[string]FieldMeta{
	"total_spent":         {Column: "total_spent", Type: FieldNumber},
	"order_count":         {Column: "order_count", Type: FieldNumber},
	"average_order_value": {Column: "average_order_value", Type: FieldNumber},
	"age":                 {Column: "age", Type: FieldNumber},
	"last_purchase":       {Column: "last_purchase", Type: FieldDate},
	"first_purchase":      {Column: "first_purchase", Type: FieldDate},
	"name":                {Column: "name", Type: FieldString},
	"email":               {Column: "email", Type: FieldString},
	"city":                {Column: "city", Type: FieldString},
	"state":               {Column: "state", Type: FieldString},
	"country":             {Column: "country", Type: FieldString},
	"gender":              {Column: "gender", Type: FieldString},
	"occupation":          {Column: "occupation", Type: FieldString},
	"is_active":           {Column: "is_active", Type: FieldBool},
}

// LookupField resolves a rule field name against the allow-list.
func LookupField(name string) (FieldMeta, error) {
	meta, ok := fieldTable[name]
	if !ok {
		return FieldMeta{}, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return meta, nil
}

// QueryableFields returns the field names callers may use in rules,
// for surfacing in API error messages and docs.
func QueryableFields() []string {
	names := make([]string, 0, len(fieldTable))
	for name := range fieldTable {
		names = append(names, name)
	}
	return names
}

// knownOperator reports whether op is one of the supported operators.
// Rules with unrecognized operators are skipped rather than rejected,
// so saved segments keep working when a client sends a newer operator.
func knownOperator(op Operator) bool {
	switch op {
	case OpGt, OpLt, OpGte, OpLte, OpEquals, OpNotEqual, OpContains:
		return true
	}
	return false
}
