package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormUserRepository implements identity.UserRepository using GORM
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	var u identity.User
	if err := conn(ctx, r.db).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// FindByEmail finds a user by normalized email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	var u identity.User
	if err := conn(ctx, r.db).Where("email = ?", identity.NormalizeEmail(email)).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// ExistsByEmail checks if the email is registered
func (r *GormUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&identity.User{}).
		Where("email = ?", identity.NormalizeEmail(email)).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a user
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	return saveVersioned(conn(ctx, r.db), user)
}

// GormMembershipRepository implements identity.MembershipRepository using GORM
type GormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository creates a new GormMembershipRepository
func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	return &GormMembershipRepository{db: db}
}

// Find loads the membership of a user in a store
func (r *GormMembershipRepository) Find(ctx context.Context, storeID, userID uuid.UUID) (*identity.Membership, error) {
	var m identity.Membership
	if err := conn(ctx, r.db).
		Where("store_id = ? AND user_id = ?", storeID, userID).
		First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// FindByUser lists a user's memberships across stores
func (r *GormMembershipRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]identity.Membership, error) {
	var ms []identity.Membership
	if err := conn(ctx, r.db).Where("user_id = ?", userID).Order("created_at ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

// ListMembers lists the members of a store joined with their user records
func (r *GormMembershipRepository) ListMembers(ctx context.Context, storeID uuid.UUID) ([]identity.MemberView, error) {
	var members []identity.MemberView
	if err := conn(ctx, r.db).
		Table("user_stores").
		Select("user_stores.user_id, users.email, users.name, user_stores.role, user_stores.created_at").
		Joins("JOIN users ON users.id = user_stores.user_id").
		Where("user_stores.store_id = ?", storeID).
		Order("user_stores.created_at ASC").
		Scan(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}

// CountByRole counts members holding a role in a store
func (r *GormMembershipRepository) CountByRole(ctx context.Context, storeID uuid.UUID, role identity.Role) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&identity.Membership{}).
		Where("store_id = ? AND role = ?", storeID, role).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a membership
func (r *GormMembershipRepository) Save(ctx context.Context, m *identity.Membership) error {
	return translate(conn(ctx, r.db).Save(m).Error)
}

// Delete removes a membership
func (r *GormMembershipRepository) Delete(ctx context.Context, storeID, userID uuid.UUID) error {
	result := conn(ctx, r.db).Delete(&identity.Membership{}, "store_id = ? AND user_id = ?", storeID, userID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var (
	_ identity.UserRepository       = (*GormUserRepository)(nil)
	_ identity.MembershipRepository = (*GormMembershipRepository)(nil)
)
