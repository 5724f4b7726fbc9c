package oracle

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sageql/sage/pkg/errors"
)

// VagueQuerySentinel is emitted by the generation prompt when the user
// request is too ambiguous to translate into SQL.
const VagueQuerySentinel = "VAGUE_QUERY"

var (
	jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	sqlFenceRe  = regexp.MustCompile("(?s)```sql\\s*(.*?)```")
	bareFenceRe = regexp.MustCompile("(?s)```\\s*(.*?)```")
)

// ExtractJSON unmarshals a JSON object from oracle output into dst.
// It tries a ```json fenced block first, then a bare fenced block,
// then the raw content.
func ExtractJSON(content string, dst interface{}) error {
	candidates := make([]string, 0, 3)
	if m := jsonFenceRe.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := bareFenceRe.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, content)

	var lastErr error
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if err := json.Unmarshal([]byte(c), dst); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return errors.Wrap(lastErr, errors.CodeOracleParse, "no parseable JSON in oracle output")
}

// SQLResult is the outcome of extracting SQL from oracle output.
type SQLResult struct {
	SQL      string
	TooVague bool
}

// ExtractSQL pulls a SQL statement from oracle output. A ```sql fenced
// block wins, then a bare fenced block, then the raw content. The
// vague-query sentinel short-circuits extraction.
func ExtractSQL(content string) (SQLResult, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return SQLResult{}, errors.New(errors.CodeOracleParse, "oracle returned empty output")
	}
	if strings.Contains(trimmed, VagueQuerySentinel) {
		return SQLResult{TooVague: true}, nil
	}

	if m := sqlFenceRe.FindStringSubmatch(trimmed); m != nil {
		trimmed = m[1]
	} else if m := bareFenceRe.FindStringSubmatch(trimmed); m != nil {
		trimmed = m[1]
	}
	sql := strings.TrimSpace(trimmed)
	if sql == "" {
		return SQLResult{}, errors.New(errors.CodeOracleParse, "oracle returned empty SQL")
	}
	return SQLResult{SQL: sql}, nil
}
