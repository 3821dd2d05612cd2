package principal

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Kind is the closed set of caller identities.
type Kind string

const (
	KindAnonymous Kind = "anonymous"
	KindCustomer  Kind = "customer"
	KindStaff     Kind = "staff"
	KindManager   Kind = "manager"
)

// Principal is the resolved caller of an operation. It is built once at the
// HTTP boundary and passed down as a value.
type Principal struct {
	Kind Kind
	ID   snowflake.ID
}

func Anonymous() Principal {
	return Principal{Kind: KindAnonymous}
}

func Customer(id snowflake.ID) Principal {
	return Principal{Kind: KindCustomer, ID: id}
}

func Staff(id snowflake.ID) Principal {
	return Principal{Kind: KindStaff, ID: id}
}

func Manager(id snowflake.ID) Principal {
	return Principal{Kind: KindManager, ID: id}
}

// Parse maps a role claim onto a principal. Unknown roles and zero ids
// resolve to Anonymous.
func Parse(role string, id snowflake.ID) Principal {
	if id == 0 {
		return Anonymous()
	}
	switch Kind(role) {
	case KindCustomer:
		return Customer(id)
	case KindStaff:
		return Staff(id)
	case KindManager:
		return Manager(id)
	default:
		return Anonymous()
	}
}

func (p Principal) IsAnonymous() bool {
	return p.Kind == KindAnonymous || p.ID == 0
}

func (p Principal) IsCustomer() bool {
	return p.Kind == KindCustomer && p.ID != 0
}

// IsEmployee is true for staff and managers.
func (p Principal) IsEmployee() bool {
	return (p.Kind == KindStaff || p.Kind == KindManager) && p.ID != 0
}

// CustomerID returns the id when the caller is a customer.
func (p Principal) CustomerID() *snowflake.ID {
	if !p.IsCustomer() {
		return nil
	}
	id := p.ID
	return &id
}

func (p Principal) String() string {
	if p.IsAnonymous() {
		return string(KindAnonymous)
	}
	return string(p.Kind) + ":" + p.ID.String()
}

type contextKey struct{}

func WithContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored in ctx, Anonymous when absent.
func FromContext(ctx context.Context) Principal {
	if ctx == nil {
		return Anonymous()
	}
	if p, ok := ctx.Value(contextKey{}).(Principal); ok {
		return p
	}
	return Anonymous()
}
