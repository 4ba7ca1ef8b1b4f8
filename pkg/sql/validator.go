// Package sql validates ad-hoc read-only queries before they reach a datasource.
package sql

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNotSelect indicates the query does not start with SELECT.
	ErrNotSelect = errors.New("only SELECT queries are allowed")

	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

var selectPrefix = regexp.MustCompile(`(?i)^\s*SELECT\s`)

// ValidateSelect trims the query and checks that it starts with the SELECT
// keyword followed by whitespace. With rejectMultiple it also strips one
// trailing semicolon and rejects any other statement separator found
// outside literals, identifiers and comments.
//
// The prefix check does not make a query safe: a SELECT can still read any
// table the connection can see.
func ValidateSelect(query string, rejectMultiple bool) (string, error) {
	query = strings.TrimSpace(query)
	if !selectPrefix.MatchString(query) {
		return "", ErrNotSelect
	}
	if !rejectMultiple {
		return query, nil
	}

	query = stripTrailingSemicolon(query)
	if scan(query).separators > 0 {
		return "", ErrMultipleStatements
	}
	return query, nil
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace around it.
func stripTrailingSemicolon(query string) string {
	query = strings.TrimRight(query, " \t\n\r")
	if trimmed, ok := strings.CutSuffix(query, ";"); ok {
		query = strings.TrimRight(trimmed, " \t\n\r")
	}
	return query
}

type scanResult struct {
	// separators counts semicolons outside quotes and comments.
	separators int
	// literals holds the unescaped contents of single-quoted strings.
	literals []string
}

// scan walks the query once, tracking single and double quotes, MySQL
// backtick identifiers, -- line comments and block comments. A # is not
// treated as a comment, so a MySQL # comment holding a semicolon is rejected.
func scan(query string) scanResult {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateBacktick
		stateLineComment
		stateBlockComment
	)

	var res scanResult
	var literal strings.Builder
	state := stateNormal
	runes := []rune(query)

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch state {
		case stateNormal:
			switch {
			case c == ';':
				res.separators++
			case c == '\'':
				state = stateSingleQuote
				literal.Reset()
			case c == '"':
				state = stateDoubleQuote
			case c == '`':
				state = stateBacktick
			case c == '-' && next == '-':
				state = stateLineComment
			case c == '/' && next == '*':
				state = stateBlockComment
				i++
			}
		case stateSingleQuote:
			switch {
			case c == '\\' && next != 0:
				literal.WriteRune(next)
				i++
			case c == '\'' && next == '\'':
				literal.WriteRune('\'')
				i++
			case c == '\'':
				res.literals = append(res.literals, literal.String())
				state = stateNormal
			default:
				literal.WriteRune(c)
			}
		case stateDoubleQuote:
			if c == '\\' && next != 0 {
				i++
			} else if c == '"' {
				state = stateNormal
			}
		case stateBacktick:
			if c == '`' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				state = stateNormal
			}
		case stateBlockComment:
			if c == '*' && next == '/' {
				state = stateNormal
				i++
			}
		}
	}
	return res
}
