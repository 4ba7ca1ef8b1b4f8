package sql

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a value libinjection classified as SQL injection.
type InjectionCheckResult struct {
	Source      string // where the value came from, e.g. "literal[0]"
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckValue reports whether value looks like SQL injection. Only strings
// are checked. Returns nil when nothing is detected.
//
// Example:
//
//	CheckValue("symbol", "TP53")                  // nil
//	CheckValue("symbol", "'; DROP TABLE users--") // Fingerprint "s;T..."
func CheckValue(source string, value any) *InjectionCheckResult {
	str, ok := value.(string)
	if !ok || str == "" {
		return nil
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(str); isSQLi {
		return &InjectionCheckResult{
			Source:      source,
			Fingerprint: string(fingerprint),
		}
	}
	return nil
}

// CheckQuery inspects the string literals of a query. A literal whose content
// is itself an injection payload usually means the query was assembled by
// concatenating untrusted input. The results are meant for audit logging;
// the query is not rejected.
func CheckQuery(query string) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for i, lit := range scan(query).literals {
		if r := CheckValue(fmt.Sprintf("literal[%d]", i), lit); r != nil {
			results = append(results, r)
		}
	}
	return results
}
