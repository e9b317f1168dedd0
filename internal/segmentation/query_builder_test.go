package segmentation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/crm-backend/internal/domain"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func TestBuildCountQuery_NumericRule(t *testing.T) {
	qb := NewQueryBuilder()
	query, args, err := qb.BuildCountQuery(domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules: []domain.Rule{
			{Field: "total_spent", Operator: ">", Value: float64(5000)},
		},
	}, "user-1")
	require.NoError(t, err)

	assert.Contains(t, query, "c.uploaded_by = $1")
	assert.Contains(t, query, "c.total_spent > $2")
	assert.Equal(t, []interface{}{"user-1", float64(5000)}, args)
}

func TestBuildCountQuery_OwnerPredicateAlwaysFirst(t *testing.T) {
	qb := NewQueryBuilder()
	query, args, err := qb.BuildCountQuery(domain.RuleSet{
		Combinator: domain.CombinatorOr,
		Rules: []domain.Rule{
			{Field: "city", Operator: "==", Value: "Berlin"},
			{Field: "order_count", Operator: ">=", Value: float64(3)},
		},
	}, "user-2")
	require.NoError(t, err)

	assert.Contains(t, query, "c.uploaded_by = $1")
	assert.Contains(t, query, "c.city = $2 OR c.order_count >= $3")
	assert.Equal(t, "user-2", args[0])
}

func TestBuildCountQuery_UnknownFieldRejected(t *testing.T) {
	qb := NewQueryBuilder()
	_, _, err := qb.BuildCountQuery(domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules: []domain.Rule{
			{Field: "password_hash", Operator: "==", Value: "x"},
		},
	}, "user-1")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestBuildCountQuery_ContainsOnNumberRejected(t *testing.T) {
	qb := NewQueryBuilder()
	_, _, err := qb.BuildCountQuery(domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules: []domain.Rule{
			{Field: "total_spent", Operator: "contains", Value: "50"},
		},
	}, "user-1")
	assert.ErrorIs(t, err, ErrInvalidOperator)
}

func TestBuildCountQuery_ContainsBuildsILIKE(t *testing.T) {
	qb := NewQueryBuilder()
	query, args, err := qb.BuildCountQuery(domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules: []domain.Rule{
			{Field: "email", Operator: "contains", Value: "@example.com"},
		},
	}, "user-1")
	require.NoError(t, err)

	assert.Contains(t, query, "c.email ILIKE $2")
	assert.Equal(t, "%@example.com%", args[1])
}

func TestBuildCountQuery_UnknownOperatorSkipsRule(t *testing.T) {
	qb := NewQueryBuilder()
	query, args, err := qb.BuildCountQuery(domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules: []domain.Rule{
			{Field: "total_spent", Operator: "between", Value: float64(10)},
			{Field: "order_count", Operator: ">", Value: float64(2)},
		},
	}, "user-1")
	require.NoError(t, err)

	assert.NotContains(t, query, "between")
	assert.Contains(t, query, "c.order_count > $2")
	assert.Len(t, args, 2)
}

func TestBuildCountQuery_AllRulesSkippedMatchesNothing(t *testing.T) {
	qb := NewQueryBuilder()
	query, args, err := qb.BuildCountQuery(domain.RuleSet{
		Combinator: domain.CombinatorOr,
		Rules: []domain.Rule{
			{Field: "total_spent", Operator: "between", Value: float64(10)},
			{Field: "city", Operator: "startswith", Value: "Ber"},
		},
	}, "user-1")
	require.NoError(t, err)

	assert.Contains(t, query, "(FALSE)")
	assert.Equal(t, []interface{}{"user-1"}, args)
}

func TestBuildCountQuery_DateRuleIsDayOffset(t *testing.T) {
	qb := NewQueryBuilder().SetNow(fixedNow)
	_, args, err := qb.BuildCountQuery(domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules: []domain.Rule{
			{Field: "last_purchase", Operator: "<", Value: float64(30)},
		},
	}, "user-1")
	require.NoError(t, err)

	require.Len(t, args, 2)
	cutoff, ok := args[1].(time.Time)
	require.True(t, ok)
	assert.Equal(t, fixedNow().Add(-30*24*time.Hour), cutoff)
}

func TestBuildCountQuery_BoolCoercion(t *testing.T) {
	for _, raw := range []interface{}{true, "true", "1"} {
		qb := NewQueryBuilder()
		_, args, err := qb.BuildCountQuery(domain.RuleSet{
			Combinator: domain.CombinatorAnd,
			Rules: []domain.Rule{
				{Field: "is_active", Operator: "==", Value: raw},
			},
		}, "user-1")
		require.NoError(t, err)
		assert.Equal(t, true, args[1], "raw value %v", raw)
	}
}

func TestBuildCountQuery_NumericStringCoerced(t *testing.T) {
	qb := NewQueryBuilder()
	_, args, err := qb.BuildCountQuery(domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules: []domain.Rule{
			{Field: "order_count", Operator: ">", Value: "5"},
		},
	}, "user-1")
	require.NoError(t, err)
	assert.Equal(t, float64(5), args[1])
}

func TestBuildCountQuery_EmptyRuleSet(t *testing.T) {
	qb := NewQueryBuilder()
	_, _, err := qb.BuildCountQuery(domain.RuleSet{Combinator: domain.CombinatorAnd}, "user-1")
	assert.ErrorIs(t, err, ErrEmptyRuleSet)
}

func TestBuildQuery_SelectsCustomerColumns(t *testing.T) {
	qb := NewQueryBuilder()
	query, _, err := qb.BuildQuery(domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules: []domain.Rule{
			{Field: "is_active", Operator: "==", Value: true},
		},
	}, "user-1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "SELECT c.id, c.name, c.email"))
	assert.Contains(t, query, "FROM crm_customers c")
	assert.Contains(t, query, "ORDER BY c.created_at")
}

func TestHashRules(t *testing.T) {
	rules := domain.RuleSet{
		Combinator: domain.CombinatorAnd,
		Rules: []domain.Rule{
			{Field: "total_spent", Operator: ">", Value: float64(100)},
		},
	}

	h1 := HashRules(rules, "user-1")
	h2 := HashRules(rules, "user-1")
	h3 := HashRules(rules, "user-2")

	assert.Equal(t, h1, h2)
	assert.NotEqual(t, h1, h3, "hash must be owner-scoped")
	assert.Len(t, h1, 64)
}
