// Package entitlement decides whether a user may open a resource.
//
// The rule is defined once, as a small tree of named predicates
// (admin, free, premium, grant), and walked by two interpreters: Evaluate
// answers for a single in-memory row, Compile emits the equivalent SQL
// fragment for bulk listing and counting. Changing the rule in one place
// changes both code paths.
package entitlement

import (
	"strings"
	"time"

	"acervo_backend/internal/models"
)

// UserContext carries the caller's identity flags.
type UserContext struct {
	ID           string
	IsAdmin      bool
	IsSubscriber bool
}

// SubscriptionState is the caller's subscription row, flattened.
// Exists = false means the user has no subscription row at all.
type SubscriptionState struct {
	Exists    bool
	IsActive  bool
	ExpiresAt *time.Time
	PlanSlug  string
}

// GrantState is a single (user, resource) access row, flattened.
type GrantState struct {
	Exists    bool
	IsActive  bool
	ExpiresAt *time.Time
}

type ResourceState struct {
	IsFree bool
}

// Input is everything the policy may look at. For Compile, the Resource and
// Grant fields are ignored: those predicates become column expressions.
type Input struct {
	User         UserContext
	Subscription SubscriptionState
	Resource     ResourceState
	Grant        GrantState
	Now          time.Time
}

// notExpired treats a nil deadline as "never expires". A malformed deadline
// (zero time, dates in the past) simply reads as expired; this package never
// returns an error.
func notExpired(expiresAt *time.Time, now time.Time) bool {
	if expiresAt == nil {
		return true
	}
	return !expiresAt.Before(now)
}

// IsActivePremium reports whether the subscription currently grants blanket
// access. The free plan never counts, even when its row is active; otherwise
// every user with the structural free-plan row would pass the check.
func IsActivePremium(s SubscriptionState, now time.Time) bool {
	if !s.Exists || !s.IsActive {
		return false
	}
	if s.PlanSlug == models.PlanSlugFree || s.PlanSlug == "" {
		return false
	}
	return notExpired(s.ExpiresAt, now)
}

// IsActiveGrant reports whether an individual access row currently grants
// access to its resource.
func IsActiveGrant(g GrantState, now time.Time) bool {
	return g.Exists && g.IsActive && notExpired(g.ExpiresAt, now)
}

// SubscriptionStateOf flattens a possibly-nil subscription row. The Plan
// relation must be preloaded for the slug to be seen; an unloaded plan reads
// as not premium, never as an error.
func SubscriptionStateOf(s *models.Subscription) SubscriptionState {
	if s == nil {
		return SubscriptionState{}
	}
	return SubscriptionState{
		Exists:    true,
		IsActive:  s.IsActive,
		ExpiresAt: s.ExpiresAt,
		PlanSlug:  s.Plan.Slug,
	}
}

// GrantStateOf flattens a possibly-nil access row.
func GrantStateOf(a *models.ResourceAccess) GrantState {
	if a == nil {
		return GrantState{}
	}
	return GrantState{Exists: true, IsActive: a.IsActive, ExpiresAt: a.ExpiresAt}
}

// ---------------------------------------------------------------------------
// Policy tree
// ---------------------------------------------------------------------------

type node interface {
	eval(in Input) bool
	compile(in Input) (string, []any)
}

type leaf struct {
	name   string
	evalFn func(Input) bool
	sqlFn  func(Input) (string, []any)
}

func (l leaf) eval(in Input) bool               { return l.evalFn(in) }
func (l leaf) compile(in Input) (string, []any) { return l.sqlFn(in) }

type anyOf []node

func (n anyOf) eval(in Input) bool {
	for _, child := range n {
		if child.eval(in) {
			return true
		}
	}
	return false
}

func (n anyOf) compile(in Input) (string, []any) {
	parts := make([]string, 0, len(n))
	var args []any
	for _, child := range n {
		sql, vars := child.compile(in)
		parts = append(parts, sql)
		args = append(args, vars...)
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// boolParam compiles a per-user fact: constant for the whole query, so it is
// evaluated in-process by the same function the single-row path uses and
// bound as a parameter. This is what keeps the two interpreters equivalent
// for the user-scoped predicates.
func boolParam(evalFn func(Input) bool) func(Input) (string, []any) {
	return func(in Input) (string, []any) {
		return "?", []any{evalFn(in)}
	}
}

var (
	adminLeaf = leaf{
		name:   "admin",
		evalFn: func(in Input) bool { return in.User.IsAdmin },
		sqlFn:  boolParam(func(in Input) bool { return in.User.IsAdmin }),
	}

	freeLeaf = leaf{
		name:   "free",
		evalFn: func(in Input) bool { return in.Resource.IsFree },
		sqlFn: func(Input) (string, []any) {
			return "resources.is_free = TRUE", nil
		},
	}

	premiumLeaf = leaf{
		name:   "premium",
		evalFn: func(in Input) bool { return IsActivePremium(in.Subscription, in.Now) },
		sqlFn:  boolParam(func(in Input) bool { return IsActivePremium(in.Subscription, in.Now) }),
	}

	grantLeaf = leaf{
		name:   "grant",
		evalFn: func(in Input) bool { return IsActiveGrant(in.Grant, in.Now) },
		sqlFn: func(in Input) (string, []any) {
			if in.User.ID == "" {
				return "FALSE", nil
			}
			return "EXISTS (SELECT 1 FROM resource_accesses ra" +
					" WHERE ra.user_id = ? AND ra.resource_id = resources.id" +
					" AND ra.is_active = TRUE AND (ra.expires_at IS NULL OR ra.expires_at >= ?))",
				[]any{in.User.ID, in.Now}
		},
	}

	accessPolicy = anyOf{adminLeaf, freeLeaf, premiumLeaf, grantLeaf}
)

// HasAccess evaluates the policy for one resource, in memory.
func HasAccess(in Input) bool {
	return accessPolicy.eval(in)
}

// Compile emits the policy as a SQL boolean over the resources table,
// suitable both as a WHERE condition and as a select alias for ordering.
func Compile(in Input) (string, []any) {
	return accessPolicy.compile(in)
}
