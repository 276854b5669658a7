package controllers

import (
	"net/http"
	"strings"

	"github.com/agrichain/agrichain-backend/api/responses"
	"github.com/agrichain/agrichain-backend/internal/search"
	pkgerrors "github.com/agrichain/agrichain-backend/pkg/errors"
	"github.com/agrichain/agrichain-backend/pkg/logger"
)

// Search resolves a product id, batch id, or QR token into a verified view.
func Search(svc search.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search service unavailable"))
			return
		}

		term := strings.TrimSpace(r.URL.Query().Get("q"))
		if term == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "query parameter q is required"))
			return
		}

		result, err := svc.Search(r.Context(), term)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
