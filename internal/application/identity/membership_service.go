package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
	auditapp "github.com/storefront/backend/internal/application/audit"
	"github.com/storefront/backend/internal/domain/audit"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MembershipService manages who can act in a store
type MembershipService struct {
	userRepo       identity.UserRepository
	membershipRepo identity.MembershipRepository
	tx             shared.TxManager
	audit          auditapp.Recorder
	logger         *zap.Logger
}

// NewMembershipService creates a new MembershipService
func NewMembershipService(
	userRepo identity.UserRepository,
	membershipRepo identity.MembershipRepository,
	tx shared.TxManager,
	recorder auditapp.Recorder,
	logger *zap.Logger,
) *MembershipService {
	if recorder == nil {
		recorder = auditapp.Nop()
	}
	return &MembershipService{
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
		tx:             tx,
		audit:          recorder,
		logger:         logger,
	}
}

// List returns the members of a store
func (s *MembershipService) List(ctx context.Context, storeID uuid.UUID) ([]MemberResponse, error) {
	views, err := s.membershipRepo.ListMembers(ctx, storeID)
	if err != nil {
		return nil, err
	}
	members := make([]MemberResponse, len(views))
	for i, v := range views {
		members[i] = MemberResponse(v)
	}
	return members, nil
}

// Add grants an existing user a role in the store
func (s *MembershipService) Add(ctx context.Context, storeID uuid.UUID, actor Actor, input AddMemberInput) (*MemberResponse, error) {
	if input.Role == identity.RoleOwner && !actor.Can(identity.PermMemberOwner) {
		return nil, shared.NewDomainError("FORBIDDEN", "Only an owner can grant the OWNER role")
	}

	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "No account with this email")
		}
		return nil, err
	}

	if _, err := s.membershipRepo.Find(ctx, storeID, user.ID); err == nil {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "User is already a member of this store")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	membership, err := identity.NewMembership(user.ID, storeID, input.Role)
	if err != nil {
		return nil, err
	}
	if err := s.membershipRepo.Save(ctx, membership); err != nil {
		return nil, err
	}

	s.logger.Info("Member added",
		zap.String("store_id", storeID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(input.Role)))
	s.record(ctx, storeID, actor, audit.ActionMemberAdded, user.ID, map[string]string{"role": string(input.Role)})

	return &MemberResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      membership.Role,
		CreatedAt: membership.CreatedAt,
	}, nil
}

// ChangeRole changes a member's role. Only owners may grant or take away
// OWNER, and the last owner cannot be demoted.
func (s *MembershipService) ChangeRole(ctx context.Context, storeID, userID uuid.UUID, actor Actor, input ChangeRoleInput) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		membership, err := s.membershipRepo.Find(ctx, storeID, userID)
		if err != nil {
			return err
		}
		if membership.Role == input.Role {
			return nil
		}
		if (input.Role == identity.RoleOwner || membership.Role == identity.RoleOwner) && !actor.Can(identity.PermMemberOwner) {
			return shared.NewDomainError("FORBIDDEN", "Only an owner can change OWNER memberships")
		}
		if membership.Role == identity.RoleOwner {
			if err := s.ensureAnotherOwner(ctx, storeID); err != nil {
				return err
			}
		}

		from := membership.Role
		if err := membership.ChangeRole(input.Role); err != nil {
			return err
		}
		if err := s.membershipRepo.Save(ctx, membership); err != nil {
			return err
		}

		s.record(ctx, storeID, actor, audit.ActionMemberRoleChanged, userID, map[string]string{
			"from": string(from),
			"to":   string(input.Role),
		})
		return nil
	})
}

// Remove revokes a member's access. The last owner cannot be removed.
func (s *MembershipService) Remove(ctx context.Context, storeID, userID uuid.UUID, actor Actor) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		membership, err := s.membershipRepo.Find(ctx, storeID, userID)
		if err != nil {
			return err
		}
		if membership.Role == identity.RoleOwner {
			if !actor.Can(identity.PermMemberOwner) {
				return shared.NewDomainError("FORBIDDEN", "Only an owner can remove an owner")
			}
			if err := s.ensureAnotherOwner(ctx, storeID); err != nil {
				return err
			}
		}
		if err := s.membershipRepo.Delete(ctx, storeID, userID); err != nil {
			return err
		}

		s.logger.Info("Member removed",
			zap.String("store_id", storeID.String()),
			zap.String("user_id", userID.String()))
		s.record(ctx, storeID, actor, audit.ActionMemberRemoved, userID, map[string]string{"role": string(membership.Role)})
		return nil
	})
}

func (s *MembershipService) ensureAnotherOwner(ctx context.Context, storeID uuid.UUID) error {
	owners, err := s.membershipRepo.CountByRole(ctx, storeID, identity.RoleOwner)
	if err != nil {
		return err
	}
	if owners <= 1 {
		return shared.NewDomainError("LAST_OWNER", "A store must keep at least one owner")
	}
	return nil
}

func (s *MembershipService) record(ctx context.Context, storeID uuid.UUID, actor Actor, action string, userID uuid.UUID, meta map[string]string) {
	actorID := actor.UserID
	s.audit.Record(ctx, auditapp.Entry{
		StoreID:    storeID,
		ActorID:    &actorID,
		Action:     action,
		EntityType: "member",
		EntityID:   userID.String(),
		Metadata:   meta,
	})
}
