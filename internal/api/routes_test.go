package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/tally/internal/api"
	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/contract"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/offering"
	"github.com/cloud-gov/tally/internal/report"
	"github.com/cloud-gov/tally/internal/subscription"
)

var nullLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubTally struct {
	got report.Request
	err error
}

func (s *stubTally) Build(_ context.Context, req report.Request) (report.Report, error) {
	s.got = req
	if s.err != nil {
		return report.Report{}, s.err
	}
	return report.Report{Meta: report.Meta{Count: 1, Product: req.ProductID}}, nil
}

type stubCapacity struct {
	got capacity.ReportRequest
}

func (s *stubCapacity) Build(_ context.Context, req capacity.ReportRequest) (capacity.Report, error) {
	s.got = req
	return capacity.Report{Meta: capacity.ReportMeta{Product: req.ProductID}}, nil
}

type stubLookup struct {
	got subscription.UsageCriteria
	sub *model.Subscription
	err error
}

func (s *stubLookup) LookupForUsage(_ context.Context, c subscription.UsageCriteria) (*model.Subscription, error) {
	s.got = c
	return s.sub, s.err
}

func routes(d api.Deps) http.Handler {
	if d.Metrics == nil {
		d.Metrics = prometheus.NewRegistry()
	}
	return api.Routes(nullLogger, d)
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestTallyReportParsesRequest(t *testing.T) {
	tally := &stubTally{}
	h := routes(api.Deps{Tally: tally})

	w := get(t, h, "/api/v1/tally/org1/products/RHEL/Cores?granularity=daily&beginning=2025-01-01T00:00:00Z&ending=2025-01-31T23:59:59Z"+
		"&category=physical&sla=Premium&usage=Production&billing_provider=aws&billing_account_id=acct1&offset=50&limit=50"+
		"&use_running_totals_format=true&billing_category=prepaid")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	got := tally.got
	assert.Equal(t, "org1", got.OrgID)
	assert.Equal(t, "RHEL", got.ProductID)
	assert.Equal(t, model.MetricID("Cores"), got.MetricID)
	assert.Equal(t, model.Daily, got.Granularity)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), got.Beginning)
	assert.Equal(t, model.CategoryPhysical, got.Category)
	assert.Equal(t, model.ServiceLevelPremium, got.SLA)
	assert.Equal(t, model.UsageProduction, got.Usage)
	assert.Equal(t, model.BillingProviderAWS, got.BillingProvider)
	assert.Equal(t, "acct1", got.BillingAccountID)
	require.NotNil(t, got.Offset)
	assert.Equal(t, 50, *got.Offset)
	assert.True(t, got.UseRunningTotals)
	assert.Equal(t, report.BillingCategoryPrepaid, got.BillingCategory)

	var body report.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RHEL", body.Meta.Product)
}

func TestTallyReportErrors(t *testing.T) {
	const base = "/api/v1/tally/org1/products/RHEL/Cores?granularity=DAILY"
	cases := []struct {
		name       string
		target     string
		buildErr   error
		wantStatus int
		wantBody   string
	}{
		{"missing beginning", base + "&ending=2025-01-02T00:00:00Z", nil, http.StatusBadRequest, "beginning is required"},
		{"bad timestamp", base + "&beginning=yesterday&ending=2025-01-02T00:00:00Z", nil, http.StatusBadRequest, "RFC 3339"},
		{"bad limit", base + "&beginning=2025-01-01T00:00:00Z&ending=2025-01-02T00:00:00Z&limit=ten", nil, http.StatusBadRequest, "limit"},
		{
			"builder validation", base + "&beginning=2025-01-01T00:00:00Z&ending=2025-01-02T00:00:00Z",
			errs.New("Offset must be divisible by limit").Mark(errs.ErrValidation), http.StatusBadRequest, "divisible",
		},
		{
			"store failure", base + "&beginning=2025-01-01T00:00:00Z&ending=2025-01-02T00:00:00Z",
			errors.New("connection reset"), http.StatusInternalServerError, "connection reset",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := routes(api.Deps{Tally: &stubTally{err: tc.buildErr}})
			w := get(t, h, tc.target)
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}
}

func TestUnknownGranularityReachesBuilder(t *testing.T) {
	tally := &stubTally{}
	h := routes(api.Deps{Tally: tally})
	get(t, h, "/api/v1/tally/org1/products/RHEL/Cores?granularity=fortnightly&beginning=2025-01-01T00:00:00Z&ending=2025-01-02T00:00:00Z")
	assert.Equal(t, model.Granularity("fortnightly"), tally.got.Granularity)
}

func TestCapacityReportParsesRequest(t *testing.T) {
	cr := &stubCapacity{}
	h := routes(api.Deps{Capacity: cr})

	w := get(t, h, "/api/v1/capacity/org1/products/RHEL/Sockets?granularity=MONTHLY&beginning=2025-01-01T00:00:00Z&ending=2025-03-31T00:00:00Z&category=HYPERVISOR&sla=_ANY")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.Monthly, cr.got.Granularity)
	assert.Equal(t, model.CapacityCategoryHypervisor, cr.got.Category)
	assert.Equal(t, model.ServiceLevelAny, cr.got.SLA)
	assert.Equal(t, model.MetricID("Sockets"), cr.got.MetricID)
}

func TestLookup(t *testing.T) {
	at := time.Date(2025, time.February, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name       string
		sub        *model.Subscription
		err        error
		wantStatus int
	}{
		{"found", &model.Subscription{SubscriptionID: "s1", SKU: "MW01", StartDate: at.AddDate(0, -1, 0), Quantity: 2}, nil, http.StatusOK},
		{"not found", nil, errs.New("none").Mark(errs.ErrNotFound), http.StatusNotFound},
		{"recently terminated", nil, errs.New("ended").WithHint("usage arrived late").Mark(errs.ErrRecentlyTerminated), http.StatusGone},
		{"ambiguous", nil, errs.New("two").Mark(errs.ErrAmbiguous), http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := &stubLookup{sub: tc.sub, err: tc.err}
			h := routes(api.Deps{Lookup: l})

			w := get(t, h, "/api/v1/subscriptions/org1/products/rosa?billing_provider=azure&billing_account_id=tenant%3Bsub&at=2025-02-01T12:00:00Z")
			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, "org1", l.got.OrgID)
			assert.Equal(t, "rosa", l.got.ProductTag)
			assert.Equal(t, model.BillingProviderAzure, l.got.BillingProvider)
			assert.Equal(t, "tenant;sub", l.got.BillingAccountID)
			assert.True(t, at.Equal(l.got.At))
			if tc.sub != nil {
				assert.Contains(t, w.Body.String(), `"subscription_id":"s1"`)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	capacity.NewMetrics(reg).Created.Inc()
	h := routes(api.Deps{Metrics: reg})

	w := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tally_capacity_measurements_created_total 1")
}

func TestAdminRequiresVerifier(t *testing.T) {
	h := routes(api.Deps{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/tally/job", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubAdmin struct {
	result    offering.Result
	err       error
	reconcile string
	contract  contract.Contract
}

func (s *stubAdmin) SyncOffering(_ context.Context, _ string) (offering.Result, error) {
	return s.result, s.err
}

func (s *stubAdmin) SyncAllOfferings(context.Context) (*rivertype.JobInsertResult, error) {
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: 11}}, s.err
}

func (s *stubAdmin) ReconcileCapacity(_ context.Context, sku string) error {
	s.reconcile = sku
	return s.err
}

func (s *stubAdmin) SyncContract(_ context.Context, c contract.Contract) error {
	s.contract = c
	return s.err
}

func (s *stubAdmin) Tally(context.Context) (*rivertype.JobInsertResult, error) {
	return &rivertype.JobInsertResult{Job: &rivertype.JobRow{ID: 12}, UniqueSkippedAsDuplicate: true}, s.err
}

func post(h http.Handler, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, target, strings.NewReader(body)))
	return w
}

func TestSyncOffering(t *testing.T) {
	cases := []struct {
		name       string
		result     offering.Result
		err        error
		wantStatus int
	}{
		{"synced", offering.FetchedAndSynced, nil, http.StatusOK},
		{"matching", offering.SkippedMatching, nil, http.StatusOK},
		{"denylisted", offering.SkippedDenylisted, nil, http.StatusForbidden},
		{"upstream down", offering.Failed, errs.New("503").Mark(errs.ErrExternalService), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := api.AdminRoutes(nullLogger, &stubAdmin{result: tc.result, err: tc.err})
			w := post(h, "/offerings/MW01/sync", "")
			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.err == nil {
				assert.Contains(t, w.Body.String(), string(tc.result))
			}
		})
	}
}

func TestAdminJobs(t *testing.T) {
	admin := &stubAdmin{}
	h := api.AdminRoutes(nullLogger, admin)

	w := post(h, "/tally/job", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "Inserted job with ID: 12")
	assert.Contains(t, w.Body.String(), "UniqueSkippedAsDuplicate: true")

	w = post(h, "/offerings/sync", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "Inserted job with ID: 11")

	w = post(h, "/capacity/MW01/reconcile", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "MW01", admin.reconcile)
}

func TestSyncContract(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"subscription_id":"s1","org_id":"org1","sku":"MW01"}`, http.StatusAccepted},
		{"malformed", `{"subscription_id":`, http.StatusBadRequest},
		{"no subscription", `{"org_id":"org1"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			admin := &stubAdmin{}
			w := post(api.AdminRoutes(nullLogger, admin), "/contracts/sync", tc.body)
			assert.Equal(t, tc.wantStatus, w.Code, w.Body.String())
			if tc.wantStatus == http.StatusAccepted {
				assert.Equal(t, "s1", admin.contract.SubscriptionID)
				assert.Equal(t, "MW01", admin.contract.SKU)
			}
		})
	}
}
