package identity

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines persistence for users
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Save(ctx context.Context, user *User) error
}

// MembershipRepository defines persistence for user/store memberships
type MembershipRepository interface {
	Find(ctx context.Context, storeID, userID uuid.UUID) (*Membership, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error)
	ListMembers(ctx context.Context, storeID uuid.UUID) ([]MemberView, error)
	CountByRole(ctx context.Context, storeID uuid.UUID, role Role) (int64, error)
	Save(ctx context.Context, membership *Membership) error
	Delete(ctx context.Context, storeID, userID uuid.UUID) error
}
