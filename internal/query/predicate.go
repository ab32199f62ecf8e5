// Package query defines a small typed predicate language for selecting
// signals. Stores translate predicates into their native filter syntax:
// the postgres store renders SQL, the memory store evaluates them directly.
package query

import (
	"fmt"
	"strings"
	"time"

	"kinkong/internal/domain"
)

// Predicate is a filter over signals.
type Predicate interface {
	// SQL renders the predicate as a WHERE condition. Placeholders are
	// numbered starting at argPos; the returned int is the next free
	// position.
	SQL(argPos int) (cond string, args []any, next int)

	// Match evaluates the predicate against an in-memory signal.
	Match(sig *domain.Signal) bool
}

// StatusIn matches signals whose status is one of the given values.
type StatusIn struct {
	Statuses []string
}

func (p StatusIn) SQL(argPos int) (string, []any, int) {
	if len(p.Statuses) == 0 {
		return "FALSE", nil, argPos
	}
	placeholders := make([]string, len(p.Statuses))
	args := make([]any, len(p.Statuses))
	for i, s := range p.Statuses {
		placeholders[i] = fmt.Sprintf("$%d", argPos+i)
		args[i] = s
	}
	return fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")), args, argPos + len(p.Statuses)
}

func (p StatusIn) Match(sig *domain.Signal) bool {
	for _, s := range p.Statuses {
		if sig.Status == s {
			return true
		}
	}
	return false
}

// StatusEq matches signals with exactly the given status.
type StatusEq struct {
	Status string
}

func (p StatusEq) SQL(argPos int) (string, []any, int) {
	return fmt.Sprintf("status = $%d", argPos), []any{p.Status}, argPos + 1
}

func (p StatusEq) Match(sig *domain.Signal) bool {
	return sig.Status == p.Status
}

// ExpiresBefore matches signals whose expiry is strictly before t.
type ExpiresBefore struct {
	T time.Time
}

func (p ExpiresBefore) SQL(argPos int) (string, []any, int) {
	return fmt.Sprintf("expires_at < $%d", argPos), []any{p.T}, argPos + 1
}

func (p ExpiresBefore) Match(sig *domain.Signal) bool {
	return sig.ExpiresAt.Before(p.T)
}

// CreatedAfter matches signals created at or after t.
type CreatedAfter struct {
	T time.Time
}

func (p CreatedAfter) SQL(argPos int) (string, []any, int) {
	return fmt.Sprintf("created_at >= $%d", argPos), []any{p.T}, argPos + 1
}

func (p CreatedAfter) Match(sig *domain.Signal) bool {
	return !sig.CreatedAt.Before(p.T)
}

// MintEq matches signals for a specific token mint.
type MintEq struct {
	Mint string
}

func (p MintEq) SQL(argPos int) (string, []any, int) {
	return fmt.Sprintf("mint = $%d", argPos), []any{p.Mint}, argPos + 1
}

func (p MintEq) Match(sig *domain.Signal) bool {
	return sig.Mint == p.Mint
}

// HasOutcome matches signals whose closing fields are populated.
// Replaces the source's "field non-blank" formula filters.
type HasOutcome struct{}

func (HasOutcome) SQL(argPos int) (string, []any, int) {
	return "exit_price IS NOT NULL AND actual_return IS NOT NULL", nil, argPos
}

func (HasOutcome) Match(sig *domain.Signal) bool {
	return sig.ExitPrice != nil && sig.ActualReturn != nil
}

// And matches signals satisfying every child predicate. An empty And
// matches everything.
type And []Predicate

func (p And) SQL(argPos int) (string, []any, int) {
	if len(p) == 0 {
		return "TRUE", nil, argPos
	}
	conds := make([]string, 0, len(p))
	var args []any
	for _, child := range p {
		cond, childArgs, next := child.SQL(argPos)
		conds = append(conds, cond)
		args = append(args, childArgs...)
		argPos = next
	}
	return "(" + strings.Join(conds, " AND ") + ")", args, argPos
}

func (p And) Match(sig *domain.Signal) bool {
	for _, child := range p {
		if !child.Match(sig) {
			return false
		}
	}
	return true
}

// Closed is the standard filter for signals with a recorded outcome in a
// terminal status.
func Closed() Predicate {
	return And{
		StatusIn{Statuses: []string{
			domain.StatusCompleted,
			domain.StatusStopped,
			domain.StatusExpired,
			domain.StatusFailed,
		}},
		HasOutcome{},
	}
}
