package guard

import (
	"fmt"
	"strings"

	"github.com/stockpilot/stockpilot/internal/observability"
)

// Keywords are tested in this order; the first hit is reported.
var Keywords = []string{"drop", "delete", "update", "insert", "alter", "create", "truncate"}

type UnsafeQueryError struct {
	Keyword string
}

func (e *UnsafeQueryError) Error() string {
	return fmt.Sprintf("query contains dangerous keyword: %s", e.Keyword)
}

// Check rejects candidate SQL containing any write or DDL keyword anywhere in its
// text. Matching is a plain case-insensitive substring test, so identifiers such as
// last_updated or created_at are rejected too.
func Check(sql string) (string, error) {
	lowered := strings.ToLower(sql)
	for _, keyword := range Keywords {
		if strings.Contains(lowered, keyword) {
			observability.IncrementGuardRejection(keyword)
			return "", &UnsafeQueryError{Keyword: keyword}
		}
	}
	return sql, nil
}
