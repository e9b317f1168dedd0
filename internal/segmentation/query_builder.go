package segmentation

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ignite/crm-backend/internal/domain"
)

// customerColumns is the scan order shared by the builder and the
// resolver. Keep in sync with scanCustomer.
const customerColumns = `c.id, c.name, c.email, c.phone, c.city, c.state, c.country,
	c.age, c.gender, c.occupation, c.total_spent, c.order_count,
	c.average_order_value, c.last_purchase, c.first_purchase, c.tags,
	c.is_active, c.churn_probability, c.predicted_churn, c.cluster_id,
	c.recommendations, c.uploaded_by, c.created_at, c.updated_at`

// QueryBuilder compiles a declarative rule set into a parameterized
// SQL query over crm_customers. Every query it emits carries an
// uploaded_by predicate, so rule content can never widen the result
// past the owner's customers.
type QueryBuilder struct {
	args       []interface{}
	argCounter int
	now        func() time.Time
}

// NewQueryBuilder creates a new QueryBuilder.
func NewQueryBuilder() *QueryBuilder {
	return &QueryBuilder{
		args:       make([]interface{}, 0),
		argCounter: 1,
		now:        time.Now,
	}
}

// SetNow overrides the clock used for day-offset date rules.
func (qb *QueryBuilder) SetNow(now func() time.Time) *QueryBuilder {
	qb.now = now
	return qb
}

// nextArg returns the next argument placeholder
func (qb *QueryBuilder) nextArg(value interface{}) string {
	qb.args = append(qb.args, value)
	placeholder := fmt.Sprintf("$%d", qb.argCounter)
	qb.argCounter++
	return placeholder
}

// BuildQuery builds the full SELECT for customers matching the rule
// set, scoped to ownerID.
func (qb *QueryBuilder) BuildQuery(rules domain.RuleSet, ownerID string) (string, []interface{}, error) {
	qb.args = make([]interface{}, 0)
	qb.argCounter = 1

	condition, err := qb.buildRuleSetCondition(rules)
	if err != nil {
		return "", nil, err
	}

	query := "SELECT " + customerColumns + "\nFROM crm_customers c" +
		"\nWHERE c.uploaded_by = " + qb.nextArg(ownerID) +
		"\n  AND (" + condition + ")" +
		"\nORDER BY c.created_at"

	return query, qb.args, nil
}

// BuildCountQuery builds the COUNT variant used for estimation.
func (qb *QueryBuilder) BuildCountQuery(rules domain.RuleSet, ownerID string) (string, []interface{}, error) {
	qb.args = make([]interface{}, 0)
	qb.argCounter = 1

	condition, err := qb.buildRuleSetCondition(rules)
	if err != nil {
		return "", nil, err
	}

	query := "SELECT COUNT(*) FROM crm_customers c" +
		"\nWHERE c.uploaded_by = " + qb.nextArg(ownerID) +
		"\n  AND (" + condition + ")"

	return query, qb.args, nil
}

// buildRuleSetCondition joins the per-rule predicates with the set's
// combinator. Rules with an unrecognized operator contribute nothing;
// if every rule is skipped the condition is FALSE so a rule set never
// silently matches the whole table.
func (qb *QueryBuilder) buildRuleSetCondition(rules domain.RuleSet) (string, error) {
	if len(rules.Rules) == 0 {
		return "", ErrEmptyRuleSet
	}

	parts := []string{}
	for _, rule := range rules.Rules {
		sql, err := qb.buildRuleCondition(rule)
		if err != nil {
			return "", err
		}
		if sql != "" {
			parts = append(parts, sql)
		}
	}

	if len(parts) == 0 {
		return "FALSE", nil
	}

	operator := " AND "
	if rules.Combinator == domain.CombinatorOr {
		operator = " OR "
	}
	return strings.Join(parts, operator), nil
}

// buildRuleCondition builds SQL for a single rule. An empty string
// with a nil error means the rule was skipped.
func (qb *QueryBuilder) buildRuleCondition(rule domain.Rule) (string, error) {
	meta, err := LookupField(rule.Field)
	if err != nil {
		return "", err
	}

	op := Operator(rule.Operator)
	if !knownOperator(op) {
		return "", nil
	}
	if op == OpContains && meta.Type != FieldString {
		return "", fmt.Errorf("%w: contains requires a string field, got %s %q",
			ErrInvalidOperator, meta.Type, rule.Field)
	}

	field := "c." + meta.Column

	value, err := qb.coerceValue(meta, rule.Value)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", rule.Field, err)
	}

	switch op {
	case OpContains:
		return fmt.Sprintf("%s ILIKE %s", field, qb.nextArg("%"+value.(string)+"%")), nil
	case OpEquals:
		return fmt.Sprintf("%s = %s", field, qb.nextArg(value)), nil
	case OpNotEqual:
		return fmt.Sprintf("%s != %s", field, qb.nextArg(value)), nil
	case OpGt:
		return fmt.Sprintf("%s > %s", field, qb.nextArg(value)), nil
	case OpGte:
		return fmt.Sprintf("%s >= %s", field, qb.nextArg(value)), nil
	case OpLt:
		return fmt.Sprintf("%s < %s", field, qb.nextArg(value)), nil
	case OpLte:
		return fmt.Sprintf("%s <= %s", field, qb.nextArg(value)), nil
	default:
		return "", nil
	}
}

// coerceValue converts a rule value into the SQL argument expected by
// the field's type. Date fields take a day offset: the compiled
// argument is now minus that many days, so "last_purchase < 90" reads
// "last purchase more than 90 days ago".
func (qb *QueryBuilder) coerceValue(meta FieldMeta, raw interface{}) (interface{}, error) {
	switch meta.Type {
	case FieldNumber:
		return toFloat(raw)
	case FieldBool:
		return toBool(raw)
	case FieldDate:
		days, err := toFloat(raw)
		if err != nil {
			return nil, err
		}
		return qb.now().Add(-time.Duration(days*24) * time.Hour), nil
	default:
		return toString(raw), nil
	}
}

func toFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case json.Number:
		return t.Float64()
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("expected numeric value, got %q", t)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", v)
	}
}

func toBool(v interface{}) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(t))
		return s == "true" || s == "1", nil
	case float64:
		return t != 0, nil
	default:
		return false, fmt.Errorf("expected boolean value, got %T", v)
	}
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// HashRules generates a deterministic hash of a rule set scoped to an
// owner, used as the estimate cache key.
func HashRules(rules domain.RuleSet, ownerID string) string {
	data := struct {
		Rules   domain.RuleSet `json:"rules"`
		OwnerID string         `json:"owner_id"`
	}{
		Rules:   rules,
		OwnerID: ownerID,
	}

	jsonBytes, _ := json.Marshal(data)
	hash := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(hash[:])
}
