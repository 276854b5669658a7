package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/agrichain/agrichain-backend/api/responses"
	"github.com/agrichain/agrichain-backend/api/validators"
	"github.com/agrichain/agrichain-backend/internal/registry"
	"github.com/agrichain/agrichain-backend/pkg/enums"
	pkgerrors "github.com/agrichain/agrichain-backend/pkg/errors"
	"github.com/agrichain/agrichain-backend/pkg/logger"
)

// RegisterStakeholder handles one-time identity registration.
func RegisterStakeholder(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		var payload registerStakeholderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stakeholder, err := svc.Register(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, stakeholder)
	}
}

// GetStakeholder resolves a registered identity by address.
func GetStakeholder(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		address := strings.TrimSpace(chi.URLParam(r, "address"))
		if address == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "address is required"))
			return
		}

		stakeholder, err := svc.Get(r.Context(), address)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stakeholder)
	}
}

// ListStakeholders returns every registered identity.
func ListStakeholders(svc registry.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "registry service unavailable"))
			return
		}

		stakeholders, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stakeholders)
	}
}

type registerStakeholderRequest struct {
	Address      string `json:"address" validate:"required"`
	Role         string `json:"role" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Organization string `json:"organization" validate:"required"`
}

func (r registerStakeholderRequest) toInput() (registry.RegisterStakeholderInput, error) {
	role, err := enums.ParseStakeholderRole(strings.TrimSpace(r.Role))
	if err != nil {
		return registry.RegisterStakeholderInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}

	return registry.RegisterStakeholderInput{
		Address:      r.Address,
		Role:         role,
		Name:         r.Name,
		Organization: r.Organization,
	}, nil
}
