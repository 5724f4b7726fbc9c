package validation

import (
	"regexp"
	"strings"
)

// StatementClass is the coarse category of a SQL statement's leading verb.
type StatementClass int

const (
	ClassSelect StatementClass = iota
	ClassInsert
	ClassUpdate
	ClassDelete
	ClassDrop
	ClassDDL // CREATE, ALTER, TRUNCATE
	ClassDCL // GRANT, REVOKE, DENY
	ClassOther
)

// String returns the string representation of the statement class.
func (c StatementClass) String() string {
	switch c {
	case ClassSelect:
		return "SELECT"
	case ClassInsert:
		return "INSERT"
	case ClassUpdate:
		return "UPDATE"
	case ClassDelete:
		return "DELETE"
	case ClassDrop:
		return "DROP"
	case ClassDDL:
		return "DDL"
	case ClassDCL:
		return "DCL"
	default:
		return "OTHER"
	}
}

// StatementClassifier provides deterministic SQL statement analysis for
// the guardrail and injection fallback paths. All patterns are compiled
// once at construction.
type StatementClassifier struct {
	classPatterns map[StatementClass][]*regexp.Regexp

	injectionPatterns []*regexp.Regexp
	dangerousPatterns []*regexp.Regexp
	systemPatterns    []*regexp.Regexp

	insertPattern *regexp.Regexp
	tablePattern  *regexp.Regexp
}

// NewStatementClassifier creates a classifier with all patterns compiled.
func NewStatementClassifier() *StatementClassifier {
	return &StatementClassifier{
		classPatterns: map[StatementClass][]*regexp.Regexp{
			ClassSelect: {
				regexp.MustCompile(`(?i)^\s*\(?\s*SELECT\s+`),
				regexp.MustCompile(`(?i)^\s*WITH\s+`),
			},
			ClassInsert: {
				regexp.MustCompile(`(?i)^\s*INSERT\s+`),
			},
			ClassUpdate: {
				regexp.MustCompile(`(?i)^\s*UPDATE\s+`),
			},
			ClassDelete: {
				regexp.MustCompile(`(?i)^\s*DELETE\s+`),
			},
			ClassDrop: {
				regexp.MustCompile(`(?i)^\s*DROP\s+`),
			},
			ClassDDL: {
				regexp.MustCompile(`(?i)^\s*CREATE\s+`),
				regexp.MustCompile(`(?i)^\s*ALTER\s+`),
				regexp.MustCompile(`(?i)^\s*TRUNCATE\s+`),
			},
			ClassDCL: {
				regexp.MustCompile(`(?i)^\s*GRANT\s+`),
				regexp.MustCompile(`(?i)^\s*REVOKE\s+`),
				regexp.MustCompile(`(?i)^\s*DENY\s+`),
			},
		},
		injectionPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bOR\s+1\s*=\s*1`),
			regexp.MustCompile(`(?i)\bAND\s+1\s*=\s*1`),
			regexp.MustCompile(`(?i)\bOR\s+TRUE\b`),
			regexp.MustCompile(`(?i)'\s*OR\s*'`),
			regexp.MustCompile(`(?i)'\s*AND\s*'`),
			regexp.MustCompile(`--`),
			regexp.MustCompile(`/\*`),
			regexp.MustCompile(`(?i)\bUNION\s+(ALL\s+)?SELECT\b`),
			regexp.MustCompile(`(?i)\bSLEEP\s*\(`),
			regexp.MustCompile(`(?i)\bWAITFOR\s+DELAY\b`),
			regexp.MustCompile(`(?i)\bBENCHMARK\s*\(`),
			regexp.MustCompile(`(?i)\bEXEC(UTE)?\s*\(`),
			regexp.MustCompile(`(?i)\bXP_\w+`),
			regexp.MustCompile(`(?i)\bINTO\s+OUTFILE\b`),
			regexp.MustCompile(`(?i)\bLOAD_FILE\s*\(`),
			regexp.MustCompile(`(?i)\bsystem\s*\(`),
		},
		dangerousPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)DROP\s+DATABASE`),
			regexp.MustCompile(`(?i)DROP\s+SCHEMA`),
			regexp.MustCompile(`(?i)DELETE\s+FROM\s+.*WHERE\s+1\s*=\s*1`),
			regexp.MustCompile(`(?i)UPDATE\s+.*SET\s+.*WHERE\s+1\s*=\s*1`),
		},
		systemPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\binformation_schema\b`),
			regexp.MustCompile(`(?i)\bsys\.\w+`),
			regexp.MustCompile(`(?i)\bpg_catalog\b`),
			regexp.MustCompile(`(?i)\bduckdb_settings\b`),
		},
		insertPattern: regexp.MustCompile(`(?i)^\s*INSERT\s+INTO\s+(\w+(\.\w+)?)`),
		tablePattern:  regexp.MustCompile(`(?i)\bDROP\s+(TABLE|VIEW|INDEX)\s+`),
	}
}

// Classify determines the statement class from the leading keyword.
func (c *StatementClassifier) Classify(sql string) StatementClass {
	for _, class := range []StatementClass{
		ClassDelete, ClassDrop, ClassUpdate, ClassInsert, ClassDDL, ClassDCL, ClassSelect,
	} {
		for _, pattern := range c.classPatterns[class] {
			if pattern.MatchString(sql) {
				return class
			}
		}
	}
	return ClassOther
}

// HasInjectionMarker reports whether the statement carries an
// unambiguously injection-style pattern.
func (c *StatementClassifier) HasInjectionMarker(sql string) bool {
	for _, pattern := range c.injectionPatterns {
		if pattern.MatchString(sql) {
			return true
		}
	}
	return false
}

// IsDangerous reports whether the statement is a destructive
// whole-database operation.
func (c *StatementClassifier) IsDangerous(sql string) bool {
	for _, pattern := range c.dangerousPatterns {
		if pattern.MatchString(sql) {
			return true
		}
	}
	return false
}

// TouchesSystemCatalog reports whether the statement references system
// catalogs or settings tables.
func (c *StatementClassifier) TouchesSystemCatalog(sql string) bool {
	for _, pattern := range c.systemPatterns {
		if pattern.MatchString(sql) {
			return true
		}
	}
	return false
}

// SplitStatements splits semicolon-separated SQL text into non-empty
// statements. Semicolons inside string literals are not considered.
func (c *StatementClassifier) SplitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	var stringChar rune

	for _, char := range sql {
		if inString {
			current.WriteRune(char)
			if char == stringChar {
				inString = false
			}
			continue
		}
		switch char {
		case '\'', '"':
			inString = true
			stringChar = char
			current.WriteRune(char)
		case ';':
			if s := strings.TrimSpace(current.String()); s != "" {
				statements = append(statements, s)
			}
			current.Reset()
		default:
			current.WriteRune(char)
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		statements = append(statements, s)
	}
	return statements
}

// IsInsertBatch reports whether every statement is an INSERT against the
// same table. Such batches are the one multi-statement form the user
// tier may accept.
func (c *StatementClassifier) IsInsertBatch(statements []string) bool {
	if len(statements) < 2 {
		return false
	}
	var table string
	for _, stmt := range statements {
		m := c.insertPattern.FindStringSubmatch(stmt)
		if m == nil {
			return false
		}
		name := strings.ToLower(m[1])
		if table == "" {
			table = name
		} else if table != name {
			return false
		}
	}
	return true
}
