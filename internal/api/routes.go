package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river/rivertype"

	"github.com/cloud-gov/tally/internal/api/middleware"
	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/contract"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/offering"
	"github.com/cloud-gov/tally/internal/report"
	"github.com/cloud-gov/tally/internal/subscription"
)

type TallyReporter interface {
	Build(ctx context.Context, req report.Request) (report.Report, error)
}

type CapacityReporter interface {
	Build(ctx context.Context, req capacity.ReportRequest) (capacity.Report, error)
}

type UsageLookup interface {
	LookupForUsage(ctx context.Context, c subscription.UsageCriteria) (*model.Subscription, error)
}

// Admin performs the operations behind the admin routes.
type Admin interface {
	SyncOffering(ctx context.Context, sku string) (offering.Result, error)
	SyncAllOfferings(ctx context.Context) (*rivertype.JobInsertResult, error)
	ReconcileCapacity(ctx context.Context, sku string) error
	SyncContract(ctx context.Context, c contract.Contract) error
	Tally(ctx context.Context) (*rivertype.JobInsertResult, error)
}

type Deps struct {
	Tally    TallyReporter
	Capacity CapacityReporter
	Lookup   UsageLookup
	Admin    Admin
	Metrics  prometheus.Gatherer
	// Verifier authenticates admin requests. The admin routes are not mounted when it is nil.
	Verifier *oidc.IDTokenVerifier
}

// Routes registers all HTTP routes for the server.
func Routes(logger *slog.Logger, d Deps) http.Handler {
	mux := chi.NewMux()
	mux.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level: slog.LevelInfo,
	}))

	mux.Handle("/metrics", promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{}))
	mux.Route("/api/v1", func(r chi.Router) {
		r.Get("/tally/{org_id}/products/{product_id}/{metric_id}", handleTallyReport(logger, d.Tally))
		r.Get("/capacity/{org_id}/products/{product_id}/{metric_id}", handleCapacityReport(logger, d.Capacity))
		r.Get("/subscriptions/{org_id}/products/{product_id}", handleLookup(logger, d.Lookup))
	})
	if d.Verifier != nil {
		mux.Mount("/admin", adminMux(logger, d.Admin, d.Verifier))
	} else {
		logger.Warn("api: no token verifier configured, admin routes disabled")
	}
	return mux
}

// adminMux returns a Handler for admin routes with access restricted to authorized subjects.
func adminMux(logger *slog.Logger, admin Admin, verifier *oidc.IDTokenVerifier) http.Handler {
	mux := chi.NewMux()
	mux.Use(middleware.NewHasScope(logger, verifier, middleware.AdminScope))
	mountAdmin(mux, logger, admin)
	return mux
}

func mountAdmin(mux chi.Router, logger *slog.Logger, admin Admin) {
	mux.Post("/offerings/{sku}/sync", handleSyncOffering(logger, admin))
	mux.Post("/offerings/sync", handleSyncAllOfferings(logger, admin))
	mux.Post("/capacity/{sku}/reconcile", handleReconcileCapacity(logger, admin))
	mux.Post("/contracts/sync", handleSyncContract(logger, admin))
	mux.Post("/tally/job", handleTallyJob(logger, admin))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string   `json:"error"`
	Hints []string `json:"hints,omitempty"`
}

// writeError responds with the status errs.HTTPStatus assigns err. Server errors are logged; client errors are not.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "api: request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error(), Hints: errs.Hints(err)})
}
