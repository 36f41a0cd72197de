package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/report"
	"github.com/cloud-gov/tally/internal/subscription"
)

// query reads typed parameters from a URL query, keeping the first parse error.
type query struct {
	values url.Values
	err    error
}

func newQuery(r *http.Request) *query {
	return &query{values: r.URL.Query()}
}

func (q *query) str(name string) string {
	return strings.TrimSpace(q.values.Get(name))
}

func (q *query) timestamp(name string, required bool) time.Time {
	raw := q.str(name)
	if raw == "" {
		if required && q.err == nil {
			q.err = errs.Newf("%s is required", name).Mark(errs.ErrValidation)
		}
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil && q.err == nil {
		q.err = errs.Wrap(err, name+" must be an RFC 3339 timestamp").Mark(errs.ErrValidation)
	}
	return t
}

func (q *query) integer(name string) *int {
	raw := q.str(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		if q.err == nil {
			q.err = errs.Wrap(err, name+" must be an integer").Mark(errs.ErrValidation)
		}
		return nil
	}
	return &v
}

func (q *query) boolean(name string) bool {
	raw := q.str(name)
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil && q.err == nil {
		q.err = errs.Wrap(err, name+" must be a boolean").Mark(errs.ErrValidation)
	}
	return v
}

// granularity passes unknown values through so the report builders reject them with their own message.
func (q *query) granularity() model.Granularity {
	raw := q.str("granularity")
	if g, ok := model.ParseGranularity(raw); ok {
		return g
	}
	return model.Granularity(raw)
}

func handleTallyReport(logger *slog.Logger, b TallyReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		req := report.Request{
			OrgID:            chi.URLParam(r, "org_id"),
			ProductID:        chi.URLParam(r, "product_id"),
			MetricID:         model.MetricID(chi.URLParam(r, "metric_id")),
			Granularity:      q.granularity(),
			Beginning:        q.timestamp("beginning", true),
			Ending:           q.timestamp("ending", true),
			Category:         model.ParseReportCategory(q.str("category")),
			SLA:              model.ParseServiceLevel(q.str("sla")),
			Usage:            model.ParseUsage(q.str("usage")),
			BillingProvider:  model.ParseBillingProvider(q.str("billing_provider")),
			BillingAccountID: q.str("billing_account_id"),
			Offset:           q.integer("offset"),
			Limit:            q.integer("limit"),
			UseRunningTotals: q.boolean("use_running_totals_format"),
			BillingCategory:  report.ParseBillingCategory(q.str("billing_category")),
		}
		if q.err != nil {
			writeError(w, r, logger, q.err)
			return
		}
		rep, err := b.Build(r.Context(), req)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

func handleCapacityReport(logger *slog.Logger, b CapacityReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		req := capacity.ReportRequest{
			OrgID:            chi.URLParam(r, "org_id"),
			ProductID:        chi.URLParam(r, "product_id"),
			MetricID:         model.MetricID(chi.URLParam(r, "metric_id")),
			Granularity:      q.granularity(),
			Beginning:        q.timestamp("beginning", true),
			Ending:           q.timestamp("ending", true),
			Category:         model.ParseHypervisorReportCategory(q.str("category")),
			SLA:              model.ParseServiceLevel(q.str("sla")),
			Usage:            model.ParseUsage(q.str("usage")),
			BillingProvider:  model.ParseBillingProvider(q.str("billing_provider")),
			BillingAccountID: q.str("billing_account_id"),
		}
		if q.err != nil {
			writeError(w, r, logger, q.err)
			return
		}
		rep, err := b.Build(r.Context(), req)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	}
}

type subscriptionBody struct {
	SubscriptionID     string                `json:"subscription_id"`
	SubscriptionNumber string                `json:"subscription_number"`
	SKU                string                `json:"sku"`
	StartDate          time.Time             `json:"start_date"`
	EndDate            *time.Time            `json:"end_date,omitempty"`
	Quantity           int64                 `json:"quantity"`
	BillingProvider    model.BillingProvider `json:"billing_provider,omitempty"`
	BillingProviderID  string                `json:"billing_provider_id,omitempty"`
	BillingAccountID   string                `json:"billing_account_id,omitempty"`
}

// handleLookup resolves the subscription usage at the given time is billed against. "at" defaults to now.
func handleLookup(logger *slog.Logger, l UsageLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := newQuery(r)
		at := q.timestamp("at", false)
		if at.IsZero() {
			at = time.Now()
		}
		c := subscription.UsageCriteria{
			OrgID:            chi.URLParam(r, "org_id"),
			ProductTag:       chi.URLParam(r, "product_id"),
			SLA:              model.ParseServiceLevel(q.str("sla")),
			Usage:            model.ParseUsage(q.str("usage")),
			BillingProvider:  model.ParseBillingProvider(q.str("billing_provider")),
			BillingAccountID: q.str("billing_account_id"),
			At:               at,
		}
		if q.err != nil {
			writeError(w, r, logger, q.err)
			return
		}
		sub, err := l.LookupForUsage(r.Context(), c)
		if err != nil {
			writeError(w, r, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, subscriptionBody{
			SubscriptionID:     sub.SubscriptionID,
			SubscriptionNumber: sub.SubscriptionNumber,
			SKU:                sub.SKU,
			StartDate:          sub.StartDate,
			EndDate:            sub.EndDate,
			Quantity:           sub.Quantity,
			BillingProvider:    sub.BillingProvider,
			BillingProviderID:  sub.BillingProviderID,
			BillingAccountID:   sub.BillingAccountID,
		})
	}
}
