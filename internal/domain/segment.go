package domain

import (
	"fmt"
	"time"
)

// Combinator controls how the rules in a rule set are joined.
type Combinator string

const (
	CombinatorAnd Combinator = "AND"
	CombinatorOr  Combinator = "OR"
)

// Rule is a single declarative predicate over a customer attribute.
// Value is kept loosely typed because rule sets arrive as JSON and the
// same field may be sent as a number or a string by different clients.
type Rule struct {
	Field    string      `json:"field"`
	Operator string      `json:"operator"`
	Value    interface{} `json:"value"`
}

// RuleSet is the declarative definition of a segment: a flat list of
// rules joined by a single combinator.
type RuleSet struct {
	Combinator Combinator `json:"combinator"`
	Rules      []Rule     `json:"rules"`
}

// Validate checks the structural invariants that hold for every rule
// set regardless of which fields the query layer supports.
func (rs *RuleSet) Validate() error {
	if rs.Combinator != CombinatorAnd && rs.Combinator != CombinatorOr {
		return fmt.Errorf("invalid combinator %q", rs.Combinator)
	}
	if len(rs.Rules) == 0 {
		return fmt.Errorf("rule set must contain at least one rule")
	}
	for i, r := range rs.Rules {
		if r.Field == "" {
			return fmt.Errorf("rule %d: field is required", i)
		}
		if r.Operator == "" {
			return fmt.Errorf("rule %d: operator is required", i)
		}
	}
	return nil
}

// Segment is a saved, named rule set owned by a single user.
// EstimatedCount is a cached match count from creation or the most
// recent estimate; it is advisory and may be stale.
type Segment struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	Rules          RuleSet   `json:"rules" db:"rules"`
	EstimatedCount int       `json:"estimated_count" db:"estimated_count"`
	CreatedBy      string    `json:"created_by" db:"created_by"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
