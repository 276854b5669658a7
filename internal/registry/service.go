package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/agrichain/agrichain-backend/pkg/db"
	"github.com/agrichain/agrichain-backend/pkg/db/models"
	"github.com/agrichain/agrichain-backend/pkg/enums"
	pkgerrors "github.com/agrichain/agrichain-backend/pkg/errors"
	"github.com/agrichain/agrichain-backend/pkg/logger"
)

// Service defines the stakeholder registry operations. Registration is a
// one-time act: an address binds to exactly one role for its lifetime.
type Service interface {
	Register(ctx context.Context, input RegisterStakeholderInput) (*models.Stakeholder, error)
	Get(ctx context.Context, address string) (*models.Stakeholder, error)
	RequireRole(ctx context.Context, address string, roles ...enums.StakeholderRole) (*models.Stakeholder, error)
	List(ctx context.Context) ([]models.Stakeholder, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// RegisterStakeholderInput captures the immutable identity a registration binds.
type RegisterStakeholderInput struct {
	Address      string                `json:"address"`
	Role         enums.StakeholderRole `json:"role"`
	Name         string                `json:"name"`
	Organization string                `json:"organization"`
}

// NewService wires a registry service with the provided repository.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("registry repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Register(ctx context.Context, input RegisterStakeholderInput) (*models.Stakeholder, error) {
	address := strings.TrimSpace(input.Address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stakeholder address is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid stakeholder role %q", input.Role))
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stakeholder name is required")
	}

	stakeholder := &models.Stakeholder{
		Address:      address,
		Role:         input.Role,
		Name:         strings.TrimSpace(input.Name),
		Organization: strings.TrimSpace(input.Organization),
	}

	if err := s.repo.Create(ctx, stakeholder); err != nil {
		if db.IsUniqueViolation(err, "stakeholders") {
			return nil, pkgerrors.New(pkgerrors.CodeAlreadyRegistered, fmt.Sprintf("address %s is already registered", address))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stakeholder")
	}

	if s.logg != nil {
		logCtx := s.logg.WithStakeholder(ctx, address)
		logCtx = s.logg.WithActorRole(logCtx, input.Role.String())
		s.logg.Info(logCtx, "stakeholder registered")
	}
	return stakeholder, nil
}

func (s *service) Get(ctx context.Context, address string) (*models.Stakeholder, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stakeholder address is required")
	}

	stakeholder, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotRegistered, fmt.Sprintf("address %s is not registered", address))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load stakeholder")
	}
	return stakeholder, nil
}

// RequireRole loads the stakeholder and checks it holds one of the allowed
// roles. A missing registration and a wrong role are distinct failures.
func (s *service) RequireRole(ctx context.Context, address string, roles ...enums.StakeholderRole) (*models.Stakeholder, error) {
	stakeholder, err := s.Get(ctx, address)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if stakeholder.Role == role {
			return stakeholder, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeWrongRole,
		fmt.Sprintf("role %s may not perform this operation", stakeholder.Role)).
		WithDetails(map[string]any{"role": stakeholder.Role})
}

func (s *service) List(ctx context.Context) ([]models.Stakeholder, error) {
	stakeholders, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stakeholders")
	}
	return stakeholders, nil
}
