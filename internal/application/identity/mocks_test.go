package identity

import (
	"context"

	"github.com/google/uuid"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// MockMembershipRepository is a mock implementation of identity.MembershipRepository
type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) Find(ctx context.Context, storeID, userID uuid.UUID) (*identity.Membership, error) {
	args := m.Called(ctx, storeID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Membership), args.Error(1)
}

func (m *MockMembershipRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.Membership, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]identity.Membership), args.Error(1)
}

func (m *MockMembershipRepository) ListMembers(ctx context.Context, storeID uuid.UUID) ([]identity.MemberView, error) {
	args := m.Called(ctx, storeID)
	return args.Get(0).([]identity.MemberView), args.Error(1)
}

func (m *MockMembershipRepository) CountByRole(ctx context.Context, storeID uuid.UUID, role identity.Role) (int64, error) {
	args := m.Called(ctx, storeID, role)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMembershipRepository) Save(ctx context.Context, membership *identity.Membership) error {
	args := m.Called(ctx, membership)
	return args.Error(0)
}

func (m *MockMembershipRepository) Delete(ctx context.Context, storeID, userID uuid.UUID) error {
	args := m.Called(ctx, storeID, userID)
	return args.Error(0)
}

type inlineTx struct{}

func (inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type recordingAudit struct {
	entries []auditapp.Entry
}

func (r *recordingAudit) Record(_ context.Context, e auditapp.Entry) {
	r.entries = append(r.entries, e)
}
