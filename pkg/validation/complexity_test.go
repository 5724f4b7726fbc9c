package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sageql/sage/pkg/models"
)

func TestAnalyzeComplexity(t *testing.T) {
	tests := []struct {
		name       string
		userQuery  string
		sql        string
		complexity models.QueryComplexity
		strategy   models.ValidationStrategy
	}{
		{
			name:       "simple select is low",
			userQuery:  "show customers",
			sql:        "SELECT name FROM customers LIMIT 100",
			complexity: models.ComplexityLow,
			strategy:   models.StrategyMinimal,
		},
		{
			name:       "join with aggregation is medium",
			userQuery:  "total revenue per customer",
			sql:        "SELECT c.name, SUM(o.total) FROM customers c JOIN orders o ON c.id = o.customer_id GROUP BY c.name",
			complexity: models.ComplexityMedium,
			strategy:   models.StrategySequential,
		},
		{
			name:      "join subquery aggregation and sorting is high",
			userQuery: "rank customers by shipped revenue",
			sql: `SELECT c.name, SUM(o.total) FROM customers c
				JOIN orders o ON c.id = o.customer_id
				WHERE o.id IN (SELECT order_id FROM shipments)
				GROUP BY c.name ORDER BY SUM(o.total) DESC`,
			complexity: models.ComplexityHigh,
			strategy:   models.StrategyParallel,
		},
		{
			name:       "set operation alone is medium",
			userQuery:  "active and archived users",
			sql:        "SELECT id FROM users UNION SELECT id FROM archived_users",
			complexity: models.ComplexityMedium,
			strategy:   models.StrategySequential,
		},
		{
			name:       "plain update is low",
			userQuery:  "mark order shipped",
			sql:        "UPDATE orders SET status = 'shipped' WHERE id = 42",
			complexity: models.ComplexityLow,
			strategy:   models.StrategyMinimal,
		},
		{
			name:       "plain insert is low",
			userQuery:  "add a customer",
			sql:        "INSERT INTO customers (name) VALUES ('Acme')",
			complexity: models.ComplexityLow,
			strategy:   models.StrategyMinimal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := AnalyzeComplexity(tt.userQuery, tt.sql)
			assert.Equal(t, tt.complexity, analysis.Complexity)
			assert.Equal(t, tt.strategy, analysis.Strategy)
		})
	}
}

func TestAnalyzeComplexity_Factors(t *testing.T) {
	analysis := AnalyzeComplexity(
		"total revenue per customer sorted by amount",
		"SELECT c.name, SUM(o.total) FROM customers c JOIN orders o ON c.id = o.customer_id GROUP BY c.name ORDER BY 2 DESC",
	)
	assert.Contains(t, analysis.Factors, "JOIN operations")
	assert.Contains(t, analysis.Factors, "Aggregations")
	assert.Contains(t, analysis.Factors, "Sorting")
	assert.NotContains(t, analysis.Factors, "Subqueries")
}

func TestAnalyzeComplexity_SubqueryDetection(t *testing.T) {
	with := AnalyzeComplexity("", "SELECT id FROM orders WHERE customer_id IN (SELECT id FROM customers)")
	without := AnalyzeComplexity("", "SELECT COUNT(id) FROM orders")

	assert.Contains(t, with.Factors, "Subqueries")
	assert.NotContains(t, without.Factors, "Subqueries")
	assert.Greater(t, with.Score, without.Score)
}

// Adding structure to a query never lowers its score.
func TestAnalyzeComplexity_MonotonicScore(t *testing.T) {
	base := "SELECT name FROM customers"
	joined := base + " JOIN orders ON customers.id = orders.customer_id"
	grouped := joined + " GROUP BY name"
	sorted := grouped + " ORDER BY name"

	prev := AnalyzeComplexity("", base).Score
	for _, sql := range []string{joined, grouped, sorted} {
		cur := AnalyzeComplexity("", sql).Score
		assert.GreaterOrEqual(t, cur, prev, "score dropped for %q", sql)
		prev = cur
	}
}
