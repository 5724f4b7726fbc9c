// Package validation implements the SQL validation pipeline: complexity
// analysis, the individual validators, and the orchestrator that
// coordinates them.
package validation

import (
	"regexp"
	"strings"

	"github.com/sageql/sage/pkg/models"
)

// ComplexityAnalysis is the output of scoring a SQL candidate.
type ComplexityAnalysis struct {
	Complexity models.QueryComplexity
	Score      int
	Factors    []string
	Strategy   models.ValidationStrategy
}

// Naive parenthesis+SELECT matching produces false positives, so
// subqueries are detected with nested-pattern regexes.
var subqueryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\(.*\bselect\b.*\)`),
	regexp.MustCompile(`\bwhere\b.*\(.*\bselect\b`),
	regexp.MustCompile(`\bfrom\b.*\(.*\bselect\b`),
	regexp.MustCompile(`\bin\b.*\(.*\bselect\b`),
}

// AnalyzeComplexity scores a SQL candidate's structural complexity and
// picks the validation strategy: parallel for high, sequential for
// medium, minimal for low. The tiering bounds latency by reserving
// multi-check validation for queries complex enough to warrant it.
func AnalyzeComplexity(userQuery, generatedSQL string) ComplexityAnalysis {
	score := 0
	var factors []string

	sqlLower := strings.ToLower(generatedSQL)

	if strings.Contains(sqlLower, "join") {
		score += 2
		factors = append(factors, "JOIN operations")
	}

	if strings.Contains(sqlLower, "(") && strings.Contains(sqlLower, "select") {
		for _, pattern := range subqueryPatterns {
			if pattern.MatchString(sqlLower) {
				score += 2
				factors = append(factors, "Subqueries")
				break
			}
		}
	}

	if strings.Contains(sqlLower, "union") || strings.Contains(sqlLower, "intersect") {
		score += 3
		factors = append(factors, "Set operations")
	}

	if strings.Contains(sqlLower, "group by") || strings.Contains(sqlLower, "having") {
		score += 1
		factors = append(factors, "Aggregations")
	}

	if strings.Contains(sqlLower, "order by") {
		score += 1
		factors = append(factors, "Sorting")
	}

	sqlWords := len(strings.Fields(generatedSQL))
	if sqlWords > 50 {
		score += 2
		factors = append(factors, "Long query")
	} else if sqlWords > 20 {
		score += 1
		factors = append(factors, "Medium query")
	}

	if len(strings.Fields(userQuery)) > 20 {
		score += 1
		factors = append(factors, "Complex user request")
	}

	if strings.HasPrefix(sqlLower, "update") || strings.HasPrefix(sqlLower, "delete") {
		score += 2
		factors = append(factors, "Modification operation")
	} else if strings.HasPrefix(sqlLower, "insert") {
		score += 1
		factors = append(factors, "Insert operation")
	}

	analysis := ComplexityAnalysis{Score: score, Factors: factors}
	switch {
	case score >= 6:
		analysis.Complexity = models.ComplexityHigh
		analysis.Strategy = models.StrategyParallel
	case score >= 3:
		analysis.Complexity = models.ComplexityMedium
		analysis.Strategy = models.StrategySequential
	default:
		analysis.Complexity = models.ComplexityLow
		analysis.Strategy = models.StrategyMinimal
	}
	return analysis
}
