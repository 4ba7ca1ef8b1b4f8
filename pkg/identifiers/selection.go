// Package identifiers normalizes the "genes" and "trs" tool arguments.
// An argument may be a JSON array of strings, the sentinel "all" (genes
// only), or a path to a header-less list file whose first column holds the
// identifiers.
package identifiers

import (
	"fmt"
	"os"

	"github.com/ekaya-inc/ekaya-biotools/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-biotools/pkg/logging"
	"github.com/ekaya-inc/ekaya-biotools/pkg/tables"
)

// All is the sentinel that selects every row of a reference table.
const All = "all"

// Selection is a validated identifier argument.
type Selection struct {
	All bool
	IDs []string
}

// Keys returns the identifiers used for digesting a request: ["all"] for the
// sentinel, the identifiers otherwise.
func (s Selection) Keys() []string {
	if s.All {
		return []string{All}
	}
	return s.IDs
}

// Error is a validation failure. Message is suitable for the calling agent.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return apperrors.ErrInvalidInput
}

func invalid(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// ParseGenes validates a genes argument. nil is treated as missing.
func ParseGenes(v any) (Selection, error) {
	switch val := v.(type) {
	case nil:
		return Selection{}, invalid("Genes parameter cannot be empty")
	case string:
		if val == All {
			return Selection{All: true}, nil
		}
		if !fileExists(val) {
			return Selection{}, invalid("Genes parameter must be gene list, 'all' or a valid file path, got: %s", logging.TruncateError(val))
		}
		ids, err := ReadListFile(val)
		if err != nil {
			return Selection{}, invalid("Error reading genes file: %s", logging.TruncateError(err.Error()))
		}
		return Selection{IDs: ids}, nil
	case []string:
		return Selection{IDs: val}, nil
	case []any:
		ids, ok := stringSlice(val)
		if !ok {
			return Selection{}, invalid("All elements in genes list must be strings")
		}
		return Selection{IDs: ids}, nil
	default:
		return Selection{}, invalid("Genes parameter must be list or string, got: %s", typeName(v))
	}
}

// ParseTRs validates a trs argument. Unlike genes there is no "all"
// sentinel: a string must name an existing list file.
func ParseTRs(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, invalid("TR list cannot be empty")
	case string:
		if !fileExists(val) {
			return nil, invalid("File path does not exist: %s", logging.TruncateError(val))
		}
		ids, err := ReadListFile(val)
		if err != nil {
			return nil, invalid("Failed to read CSV file: %s", logging.TruncateError(err.Error()))
		}
		if len(ids) == 0 {
			return nil, invalid("TR list cannot be empty")
		}
		return ids, nil
	case []string:
		if len(val) == 0 {
			return nil, invalid("TR list cannot be empty")
		}
		return val, nil
	case []any:
		ids, ok := stringSlice(val)
		if !ok {
			return nil, invalid("All elements in TR list must be strings")
		}
		if len(ids) == 0 {
			return nil, invalid("TR list cannot be empty")
		}
		return ids, nil
	default:
		return nil, invalid("TRs parameter must be list or string, got: %s", typeName(v))
	}
}

// ReadListFile reads the first column of a header-less, comma separated file.
func ReadListFile(path string) ([]string, error) {
	t, err := tables.ReadFile(path, tables.List)
	if err != nil {
		return nil, err
	}
	return t.Column(0), nil
}

func stringSlice(values []any) ([]string, bool) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func typeName(v any) string {
	switch v.(type) {
	case float64, int, int64:
		return "number"
	case bool:
		return "boolean"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
