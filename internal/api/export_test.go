package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// AdminRoutes serves the admin routes without authentication.
func AdminRoutes(logger *slog.Logger, admin Admin) http.Handler {
	mux := chi.NewMux()
	mountAdmin(mux, logger, admin)
	return mux
}
