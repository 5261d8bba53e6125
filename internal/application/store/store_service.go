package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/store"
	"go.uber.org/zap"
)

// StoreService manages stores and resolves storefronts
type StoreService struct {
	storeRepo      store.Repository
	membershipRepo identity.MembershipRepository
	tx             shared.TxManager
	audit          auditapp.Recorder
	logger         *zap.Logger
}

// NewStoreService creates a new StoreService
func NewStoreService(
	storeRepo store.Repository,
	membershipRepo identity.MembershipRepository,
	tx shared.TxManager,
	recorder auditapp.Recorder,
	logger *zap.Logger,
) *StoreService {
	if recorder == nil {
		recorder = auditapp.Nop()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreService{
		storeRepo:      storeRepo,
		membershipRepo: membershipRepo,
		tx:             tx,
		audit:          recorder,
		logger:         logger,
	}
}

// Create opens a store and makes the creator its OWNER
func (s *StoreService) Create(ctx context.Context, ownerID uuid.UUID, req CreateStoreRequest) (*StoreResponse, error) {
	st, err := store.NewStore(req.Name, req.Slug, req.Currency)
	if err != nil {
		return nil, err
	}
	if req.SupportEmail != "" {
		if err := st.Update(st.Name, req.SupportEmail); err != nil {
			return nil, err
		}
	}

	exists, err := s.storeRepo.ExistsBySlug(ctx, st.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Store with this slug already exists")
	}

	membership, err := identity.NewMembership(ownerID, st.ID, identity.RoleOwner)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.storeRepo.Save(ctx, st); err != nil {
			return err
		}
		return s.membershipRepo.Save(ctx, membership)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Store created",
		zap.String("store_id", st.ID.String()),
		zap.String("slug", st.Slug),
		zap.String("owner_id", ownerID.String()))

	resp := ToStoreResponse(st)
	return &resp, nil
}

// Get returns a store by ID
func (s *StoreService) Get(ctx context.Context, storeID uuid.UUID) (*StoreResponse, error) {
	st, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	resp := ToStoreResponse(st)
	return &resp, nil
}

// Resolve finds the open store behind a storefront slug. Suspended stores
// are reported as not found.
func (s *StoreService) Resolve(ctx context.Context, slug string) (*store.Store, error) {
	st, err := s.storeRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !st.IsOpen() {
		return nil, shared.NewDomainError("NOT_FOUND", "Store not found")
	}
	return st, nil
}

// GetBySlug returns the storefront view of an open store
func (s *StoreService) GetBySlug(ctx context.Context, slug string) (*PublicStoreResponse, error) {
	st, err := s.Resolve(ctx, slug)
	if err != nil {
		return nil, err
	}
	resp := ToPublicStoreResponse(st)
	return &resp, nil
}

// ListForUser returns the stores the user is a member of
func (s *StoreService) ListForUser(ctx context.Context, userID uuid.UUID) ([]UserStoreResponse, error) {
	memberships, err := s.membershipRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return []UserStoreResponse{}, nil
	}

	ids := make([]uuid.UUID, len(memberships))
	roles := make(map[uuid.UUID]identity.Role, len(memberships))
	for i, m := range memberships {
		ids[i] = m.StoreID
		roles[m.StoreID] = m.Role
	}

	stores, err := s.storeRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]UserStoreResponse, 0, len(stores))
	for i := range stores {
		result = append(result, UserStoreResponse{
			StoreResponse: ToStoreResponse(&stores[i]),
			Role:          roles[stores[i].ID],
		})
	}
	return result, nil
}

// Update changes the store settings
func (s *StoreService) Update(ctx context.Context, storeID, actorID uuid.UUID, req UpdateStoreRequest) (*StoreResponse, error) {
	st, err := s.storeRepo.FindByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if err := st.Update(req.Name, req.SupportEmail); err != nil {
		return nil, err
	}
	if err := s.storeRepo.Save(ctx, st); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, auditapp.Entry{
		StoreID:    storeID,
		ActorID:    &actorID,
		Action:     audit.ActionStoreUpdated,
		EntityType: "store",
		EntityID:   storeID.String(),
	})

	resp := ToStoreResponse(st)
	return &resp, nil
}

// Delete soft deletes the store
func (s *StoreService) Delete(ctx context.Context, storeID, actorID uuid.UUID) error {
	if _, err := s.storeRepo.FindByID(ctx, storeID); err != nil {
		return err
	}
	if err := s.storeRepo.Delete(ctx, storeID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return shared.NewDomainError("NOT_FOUND", "Store not found")
		}
		return err
	}

	s.logger.Info("Store deleted", zap.String("store_id", storeID.String()), zap.String("actor_id", actorID.String()))
	s.audit.Record(ctx, auditapp.Entry{
		StoreID:    storeID,
		ActorID:    &actorID,
		Action:     audit.ActionStoreDeleted,
		EntityType: "store",
		EntityID:   storeID.String(),
	})
	return nil
}
