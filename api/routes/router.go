package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/agrichain/agrichain-backend/api/controllers"
	"github.com/agrichain/agrichain-backend/api/middleware"
	"github.com/agrichain/agrichain-backend/internal/ledger"
	"github.com/agrichain/agrichain-backend/internal/registry"
	"github.com/agrichain/agrichain-backend/internal/search"
	"github.com/agrichain/agrichain-backend/pkg/config"
	"github.com/agrichain/agrichain-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	registryService registry.Service,
	ledgerService ledger.Service,
	searchService search.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Route("/api/v1/stakeholders", func(r chi.Router) {
		r.Post("/", controllers.RegisterStakeholder(registryService, logg))
		r.Get("/", controllers.ListStakeholders(registryService, logg))
		r.Get("/{address}", controllers.GetStakeholder(registryService, logg))
		r.Get("/{address}/products", controllers.FarmerProducts(ledgerService, logg))
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Post("/", controllers.RegisterProduct(ledgerService, logg))
		r.Get("/", controllers.ListProductIDs(ledgerService, logg))
		r.Get("/{id}", controllers.GetProduct(ledgerService, logg))
		r.Get("/{id}/history", controllers.GetProductHistory(ledgerService, logg))
		r.Post("/{id}/transfer", controllers.TransferProduct(ledgerService, logg))
		r.Post("/{id}/verify", controllers.VerifyProduct(ledgerService, logg))
	})

	r.Get("/api/v1/search", controllers.Search(searchService, logg))

	return r
}
