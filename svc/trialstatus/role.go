package trialstatus

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/trialcycle/pkg/pg"
)

// DefaultGovernedRoles are the roles whose sessions follow trial state.
var DefaultGovernedRoles = []string{"owner"}

// RoleResolver looks up the role of an account.
type RoleResolver interface {
	Role(ctx context.Context, accountID uuid.UUID) (string, error)
}

// RoleFunc adapts a function to RoleResolver.
type RoleFunc func(ctx context.Context, accountID uuid.UUID) (string, error)

func (f RoleFunc) Role(ctx context.Context, accountID uuid.UUID) (string, error) {
	return f(ctx, accountID)
}

// StaticRole resolves every account to role.
func StaticRole(role string) RoleResolver {
	return RoleFunc(func(context.Context, uuid.UUID) (string, error) {
		return role, nil
	})
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGRoleResolver reads accounts.role.
type PGRoleResolver struct {
	db rowQuerier
}

func NewPGRoleResolver(db rowQuerier) *PGRoleResolver {
	if db == nil {
		panic("trialstatus: db cannot be nil")
	}
	return &PGRoleResolver{db: db}
}

func (r *PGRoleResolver) Role(ctx context.Context, accountID uuid.UUID) (string, error) {
	var role string
	err := r.db.QueryRow(ctx, `SELECT role FROM accounts WHERE id = $1`, accountID).Scan(&role)
	if pg.IsNotFoundError(err) {
		return "", errors.Join(ErrRoleLookup, ErrAccountNotFound)
	}
	if err != nil {
		return "", errors.Join(ErrRoleLookup, err)
	}
	return role, nil
}
