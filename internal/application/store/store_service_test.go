package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockStoreRepository struct {
	mock.Mock
}

func (m *MockStoreRepository) FindByID(ctx context.Context, id uuid.UUID) (*store.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *MockStoreRepository) FindBySlug(ctx context.Context, slug string) (*store.Store, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

func (m *MockStoreRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]store.Store, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]store.Store), args.Error(1)
}

func (m *MockStoreRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	args := m.Called(ctx, slug)
	return args.Bool(0), args.Error(1)
}

func (m *MockStoreRepository) Save(ctx context.Context, s *store.Store) error {
	return m.Called(ctx, s).Error(0)
}

func (m *MockStoreRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

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
	return m.Called(ctx, membership).Error(0)
}

func (m *MockMembershipRepository) Delete(ctx context.Context, storeID, userID uuid.UUID) error {
	return m.Called(ctx, storeID, userID).Error(0)
}

// inlineTx runs fn without a real transaction
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

func newTestService() (*StoreService, *MockStoreRepository, *MockMembershipRepository, *recordingAudit) {
	storeRepo := new(MockStoreRepository)
	memberRepo := new(MockMembershipRepository)
	rec := &recordingAudit{}
	return NewStoreService(storeRepo, memberRepo, inlineTx{}, rec, zap.NewNop()), storeRepo, memberRepo, rec
}

func TestStoreService_Create(t *testing.T) {
	ctx := context.Background()
	svc, storeRepo, memberRepo, _ := newTestService()
	ownerID := uuid.New()

	storeRepo.On("ExistsBySlug", ctx, "corner-shop").Return(false, nil)
	storeRepo.On("Save", ctx, mock.AnythingOfType("*store.Store")).Return(nil)
	memberRepo.On("Save", ctx, mock.MatchedBy(func(m *identity.Membership) bool {
		return m.UserID == ownerID && m.Role == identity.RoleOwner
	})).Return(nil)

	resp, err := svc.Create(ctx, ownerID, CreateStoreRequest{Name: "Corner Shop", Currency: "bdt", SupportEmail: "Help@Corner.Shop"})

	require.NoError(t, err)
	assert.Equal(t, "corner-shop", resp.Slug)
	assert.Equal(t, "BDT", resp.Currency)
	assert.Equal(t, "help@corner.shop", resp.SupportEmail)
	assert.Equal(t, "FREE", resp.Plan)
	storeRepo.AssertExpectations(t)
	memberRepo.AssertExpectations(t)
}

func TestStoreService_Create_SlugTaken(t *testing.T) {
	ctx := context.Background()
	svc, storeRepo, memberRepo, _ := newTestService()

	storeRepo.On("ExistsBySlug", ctx, "taken").Return(true, nil)

	_, err := svc.Create(ctx, uuid.New(), CreateStoreRequest{Name: "Whatever", Slug: "taken"})

	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	storeRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	memberRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestStoreService_Create_MembershipFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	svc, storeRepo, memberRepo, _ := newTestService()

	storeRepo.On("ExistsBySlug", ctx, "shop").Return(false, nil)
	storeRepo.On("Save", ctx, mock.Anything).Return(nil)
	memberRepo.On("Save", ctx, mock.Anything).Return(errors.New("insert failed"))

	_, err := svc.Create(ctx, uuid.New(), CreateStoreRequest{Name: "Shop"})
	assert.EqualError(t, err, "insert failed")
}

func TestStoreService_Resolve(t *testing.T) {
	ctx := context.Background()
	svc, storeRepo, _, _ := newTestService()

	open, _ := store.NewStore("Open", "open", "USD")
	suspended, _ := store.NewStore("Closed", "closed", "USD")
	require.NoError(t, suspended.Suspend())

	storeRepo.On("FindBySlug", ctx, "open").Return(open, nil)
	storeRepo.On("FindBySlug", ctx, "closed").Return(suspended, nil)
	storeRepo.On("FindBySlug", ctx, "missing").Return(nil, shared.ErrNotFound)

	got, err := svc.Resolve(ctx, "open")
	require.NoError(t, err)
	assert.Equal(t, open.ID, got.ID)

	_, err = svc.Resolve(ctx, "closed")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestStoreService_ListForUser(t *testing.T) {
	ctx := context.Background()
	svc, storeRepo, memberRepo, _ := newTestService()
	userID := uuid.New()

	a, _ := store.NewStore("A", "a", "USD")
	b, _ := store.NewStore("B", "b", "USD")
	ma, _ := identity.NewMembership(userID, a.ID, identity.RoleOwner)
	mb, _ := identity.NewMembership(userID, b.ID, identity.RoleStaff)

	memberRepo.On("FindByUser", ctx, userID).Return([]identity.Membership{*ma, *mb}, nil)
	storeRepo.On("FindByIDs", ctx, []uuid.UUID{a.ID, b.ID}).Return([]store.Store{*a, *b}, nil)

	list, err := svc.ListForUser(ctx, userID)

	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, identity.RoleOwner, list[0].Role)
	assert.Equal(t, identity.RoleStaff, list[1].Role)
}

func TestStoreService_ListForUser_NoMemberships(t *testing.T) {
	ctx := context.Background()
	svc, storeRepo, memberRepo, _ := newTestService()
	userID := uuid.New()

	memberRepo.On("FindByUser", ctx, userID).Return([]identity.Membership{}, nil)

	list, err := svc.ListForUser(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, list)
	storeRepo.AssertNotCalled(t, "FindByIDs", mock.Anything, mock.Anything)
}

func TestStoreService_UpdateAndDelete_AreAudited(t *testing.T) {
	ctx := context.Background()
	svc, storeRepo, _, rec := newTestService()
	actorID := uuid.New()
	st, _ := store.NewStore("Shop", "shop", "USD")

	storeRepo.On("FindByID", ctx, st.ID).Return(st, nil)
	storeRepo.On("Save", ctx, st).Return(nil)
	storeRepo.On("Delete", ctx, st.ID).Return(nil)

	resp, err := svc.Update(ctx, st.ID, actorID, UpdateStoreRequest{Name: "Shop Two"})
	require.NoError(t, err)
	assert.Equal(t, "Shop Two", resp.Name)

	require.NoError(t, svc.Delete(ctx, st.ID, actorID))

	require.Len(t, rec.entries, 2)
	assert.Equal(t, audit.ActionStoreUpdated, rec.entries[0].Action)
	assert.Equal(t, audit.ActionStoreDeleted, rec.entries[1].Action)
	assert.Equal(t, actorID, *rec.entries[1].ActorID)
}
