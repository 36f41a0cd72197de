package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/riverqueue/river/rivertype"

	"github.com/cloud-gov/tally/internal/contract"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/offering"
)

type syncBody struct {
	SKU    string          `json:"sku"`
	Result offering.Result `json:"result"`
}

func handleSyncOffering(logger *slog.Logger, admin Admin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sku := chi.URLParam(r, "sku")
		res, err := admin.SyncOffering(r.Context(), sku)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		status := http.StatusOK
		if res == offering.SkippedDenylisted {
			status = http.StatusForbidden
		}
		writeJSON(w, status, syncBody{SKU: sku, Result: res})
	}
}

func handleSyncAllOfferings(logger *slog.Logger, admin Admin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := admin.SyncAllOfferings(r.Context())
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeInserted(w, result)
	}
}

func handleReconcileCapacity(logger *slog.Logger, admin Admin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := admin.ReconcileCapacity(r.Context(), chi.URLParam(r, "sku")); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleSyncContract(logger *slog.Logger, admin Admin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c contract.Contract
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeError(w, r, logger, errs.Wrap(err, "decoding contract").Mark(errs.ErrValidation))
			return
		}
		if c.SubscriptionID == "" {
			writeError(w, r, logger, errs.New("contract requires a subscription_id").Mark(errs.ErrValidation))
			return
		}
		if err := admin.SyncContract(r.Context(), c); err != nil {
			writeError(w, r, logger, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}
}

func handleTallyJob(logger *slog.Logger, admin Admin) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := admin.Tally(r.Context())
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeInserted(w, result)
	}
}

func writeInserted(w http.ResponseWriter, result *rivertype.JobInsertResult) {
	w.WriteHeader(http.StatusAccepted)
	_, _ = io.WriteString(w, fmt.Sprintf("Inserted job with ID: %v\nUniqueSkippedAsDuplicate: %v\n", result.Job.ID, result.UniqueSkippedAsDuplicate))
}
