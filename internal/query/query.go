// Package query builds time-scoped issue search queries.
package query

import (
	"fmt"
	"strings"

	"github.com/jonathan/issues-dataset/internal/window"
)

// TimestampLayout is the server's search-query date format.
const TimestampLayout = "2006-01-02T15:04:05"

// OrderBy names the issue timestamp a window filters on.
type OrderBy string

const (
	Created OrderBy = "created"
	Updated OrderBy = "updated"
)

// Grammar selects how the time clause joins the base query.
type Grammar string

const (
	// Common appends the time clause after a space.
	Common Grammar = "common"
	// Formal joins the time clause with the `and` operator.
	Formal Grammar = "formal"
)

// InvalidOrderByError is returned for an unrecognized ordering field.
type InvalidOrderByError struct {
	Value string
}

func (e *InvalidOrderByError) Error() string {
	return fmt.Sprintf("we can order by `created` or `updated` timestamp, `%s` not allowed", e.Value)
}

// InvalidGrammarError is returned for an unrecognized query grammar.
type InvalidGrammarError struct {
	Value string
}

func (e *InvalidGrammarError) Error() string {
	return fmt.Sprintf("query type must be either `common` or `formal`; `%s` not recognized", e.Value)
}

// ParseOrderBy converts a flag value to an OrderBy.
func ParseOrderBy(s string) (OrderBy, error) {
	switch OrderBy(s) {
	case Created, Updated:
		return OrderBy(s), nil
	default:
		return "", &InvalidOrderByError{Value: s}
	}
}

// ParseGrammar converts a flag value to a Grammar.
func ParseGrammar(s string) (Grammar, error) {
	switch Grammar(s) {
	case Common, Formal:
		return Grammar(s), nil
	default:
		return "", &InvalidGrammarError{Value: s}
	}
}

// Builder combines a fixed base query with per-window time clauses.
type Builder struct {
	Base    string
	OrderBy OrderBy
	Grammar Grammar
}

// Clause returns the time-range clause for w, e.g.
// "created: 2021-01-01T00:00:00 .. 2021-01-08T00:00:00". Bounds are always
// written lower first so descending windows select the same span.
func (b Builder) Clause(w window.Window) string {
	return fmt.Sprintf("%s: %s .. %s", b.OrderBy,
		w.Lower().Format(TimestampLayout), w.Upper().Format(TimestampLayout))
}

// ForWindow returns the complete, unencoded query for w.
func (b Builder) ForWindow(w window.Window) string {
	base := strings.TrimSpace(b.Base)
	clause := b.Clause(w)
	if base == "" {
		return clause
	}
	if b.Grammar == Formal {
		return base + " and " + clause
	}
	return base + " " + clause
}
