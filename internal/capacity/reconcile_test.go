package capacity_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/tally/internal/capacity"
	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
	. "github.com/cloud-gov/tally/internal/testutil"
)

var nullLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

var (
	physicalCores     = model.MeasurementKey{MeasurementType: model.MeasurementPhysical, MetricID: model.MetricCores}
	hypervisorCores   = model.MeasurementKey{MeasurementType: model.MeasurementHypervisor, MetricID: model.MetricCores}
	physicalSockets   = model.MeasurementKey{MeasurementType: model.MeasurementPhysical, MetricID: model.MetricSockets}
	hypervisorSockets = model.MeasurementKey{MeasurementType: model.MeasurementHypervisor, MetricID: model.MetricSockets}
)

type denylist map[string]bool

func (d denylist) Denied(sku string) bool { return d[sku] }

// fakeStore serves subscriptions from memory. If errOn matches the method being called it returns an error.
type fakeStore struct {
	errOn     string
	offerings map[string]*model.Offering
	subs      []*model.Subscription
	saved     map[model.SubscriptionRef]capacity.Changes
}

var errExpected = errors.New("this error was expected")

func (f *fakeStore) GetOffering(_ context.Context, sku string) (*model.Offering, error) {
	if f.errOn == "GetOffering" {
		return nil, errExpected
	}
	o, ok := f.offerings[sku]
	if !ok {
		return nil, errs.Newf("offering %s", sku).Mark(errs.ErrNotFound)
	}
	return o, nil
}

func (f *fakeStore) FindSubscriptionsBySKU(_ context.Context, sku string, offset, limit int) ([]*model.Subscription, error) {
	if f.errOn == "FindSubscriptionsBySKU" {
		return nil, errExpected
	}
	var matching []*model.Subscription
	for _, s := range f.subs {
		if s.SKU == sku {
			matching = append(matching, s)
		}
	}
	if offset > len(matching) {
		offset = len(matching)
	}
	end := min(offset+limit, len(matching))
	return matching[offset:end], nil
}

func (f *fakeStore) SaveMeasurements(_ context.Context, ref model.SubscriptionRef, c capacity.Changes) error {
	if f.errOn == "SaveMeasurements" {
		return errExpected
	}
	if f.saved == nil {
		f.saved = map[model.SubscriptionRef]capacity.Changes{}
	}
	f.saved[ref] = c
	return nil
}

type fakeEnqueuer struct {
	err   error
	tasks []capacity.ReconcileTask
}

func (f *fakeEnqueuer) EnqueueReconcile(_ context.Context, t capacity.ReconcileTask) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, t)
	return nil
}

func newReconciler(t *testing.T, deny denylist) (*capacity.Reconciler, *capacity.Metrics) {
	t.Helper()
	m := capacity.NewMetrics(prometheus.NewRegistry())
	return capacity.NewReconciler(nullLogger, deny, m), m
}

func counts(m *capacity.Metrics) [3]float64 {
	return [3]float64{testutil.ToFloat64(m.Created), testutil.ToFloat64(m.Updated), testutil.ToFloat64(m.Deleted)}
}

func subscription(id, sku string, qty int64) *model.Subscription {
	return &model.Subscription{
		SubscriptionID: id,
		StartDate:      time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		SKU:            sku,
		Quantity:       qty,
		Measurements:   map[model.MeasurementKey]float64{},
	}
}

func TestReconcileSubscriptionUpserts(t *testing.T) {
	r, m := newReconciler(t, nil)
	offering := &model.Offering{SKU: "MW01", Cores: Ptr(4), HypervisorCores: Ptr(8), Sockets: Ptr(2), HypervisorSockets: Ptr(0)}
	sub := subscription("s1", "MW01", 3)
	sub.SetMeasurement(physicalCores, 4)

	changes := r.ReconcileSubscription(t.Context(), sub, offering)

	assert.Equal(t, map[model.MeasurementKey]float64{physicalCores: 12, hypervisorCores: 24, physicalSockets: 6}, sub.Measurements)
	assert.Equal(t, sub.Measurements, changes.Upserted)
	assert.Empty(t, changes.Deleted)
	assert.Equal(t, [3]float64{2, 1, 0}, counts(m))
}

func TestReconcileSubscriptionIsIdempotent(t *testing.T) {
	r, m := newReconciler(t, nil)
	offering := &model.Offering{SKU: "MW01", Cores: Ptr(4), Sockets: Ptr(2)}
	sub := subscription("s1", "MW01", 2)

	first := r.ReconcileSubscription(t.Context(), sub, offering)
	require.False(t, first.Empty())
	before := counts(m)

	second := r.ReconcileSubscription(t.Context(), sub, offering)
	assert.True(t, second.Empty())
	assert.Equal(t, before, counts(m))
}

func TestReconcileSubscriptionStaleCleanup(t *testing.T) {
	cases := []struct {
		name        string
		metered     bool
		wantDeleted []model.MeasurementKey
		wantKept    bool
	}{
		{"non-metered deletes stale hypervisor cores", false, []model.MeasurementKey{hypervisorCores}, false},
		{"metered keeps measurements it does not own", true, nil, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, m := newReconciler(t, nil)
			offering := &model.Offering{SKU: "MW01", Cores: Ptr(4), HypervisorCores: Ptr(8)}
			sub := subscription("s1", "MW01", 1)
			r.ReconcileSubscription(t.Context(), sub, offering)
			require.Contains(t, sub.Measurements, hypervisorCores)

			offering.HypervisorCores = nil
			offering.Metered = tc.metered
			changes := r.ReconcileSubscription(t.Context(), sub, offering)

			assert.Equal(t, tc.wantDeleted, changes.Deleted)
			_, kept := sub.Measurement(hypervisorCores)
			assert.Equal(t, tc.wantKept, kept)
			assert.Equal(t, float64(len(tc.wantDeleted)), testutil.ToFloat64(m.Deleted))
		})
	}
}

func TestReconcileSubscriptionDenylisted(t *testing.T) {
	r, m := newReconciler(t, denylist{"MW01": true})
	sub := subscription("s1", "MW01", 1)
	sub.SetMeasurement(physicalCores, 4)
	sub.SetMeasurement(hypervisorSockets, 2)

	changes := r.ReconcileSubscription(t.Context(), sub, &model.Offering{SKU: "MW01", Cores: Ptr(4)})

	assert.Empty(t, sub.Measurements)
	assert.ElementsMatch(t, []model.MeasurementKey{physicalCores, hypervisorSockets}, changes.Deleted)
	assert.Empty(t, changes.Upserted)
	assert.Equal(t, [3]float64{0, 0, 2}, counts(m))
}

func TestReconcileForOfferingPagination(t *testing.T) {
	cases := []struct {
		n, limit  int
		wantPages []int
	}{
		{n: 10, limit: 3, wantPages: []int{3, 3, 3, 1}},
		{n: 9, limit: 3, wantPages: []int{3, 3, 3}},
		{n: 2, limit: 5, wantPages: []int{2}},
		{n: 0, limit: 5, wantPages: []int{0}},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d subscriptions in pages of %d", tc.n, tc.limit), func(t *testing.T) {
			r, _ := newReconciler(t, nil)
			store := &fakeStore{offerings: map[string]*model.Offering{"MW01": {SKU: "MW01", Cores: Ptr(2)}}}
			for i := range tc.n {
				store.subs = append(store.subs, subscription(fmt.Sprintf("s%02d", i), "MW01", 1))
			}
			store.subs = append(store.subs, subscription("other", "RH02", 1))

			// Drain the queue the way the job worker would.
			var pages []int
			queue := []capacity.ReconcileTask{{SKU: "MW01", Revision: "r1", Offset: 0, Limit: tc.limit}}
			for len(queue) > 0 {
				task := queue[0]
				queue = queue[1:]
				enq := &fakeEnqueuer{}
				res, err := r.ReconcileForOffering(t.Context(), store, enq, task)
				require.NoError(t, err)
				pages = append(pages, res.Subscriptions)
				if res.Continuation == nil {
					assert.Empty(t, enq.tasks)
				} else {
					assert.Equal(t, []capacity.ReconcileTask{*res.Continuation}, enq.tasks)
					assert.Equal(t, task.Offset+task.Limit, res.Continuation.Offset)
					assert.Equal(t, "r1", res.Continuation.Revision)
				}
				queue = append(queue, enq.tasks...)
			}

			assert.Equal(t, tc.wantPages, pages)
			assert.Len(t, store.saved, tc.n)
			for _, s := range store.subs[:tc.n] {
				assert.Equal(t, 2.0, s.Measurements[physicalCores])
			}
			assert.Empty(t, store.subs[tc.n].Measurements, "other SKUs are untouched")
		})
	}
}

func TestReconcileForOfferingErrors(t *testing.T) {
	cases := []struct {
		name    string
		errOn   string
		enqErr  error
		task    capacity.ReconcileTask
		wantErr error
	}{
		{"bad limit", "", nil, capacity.ReconcileTask{SKU: "MW01", Limit: 0}, errs.ErrValidation},
		{"unknown offering", "", nil, capacity.ReconcileTask{SKU: "NOPE", Limit: 1}, errs.ErrNotFound},
		{"offering lookup", "GetOffering", nil, capacity.ReconcileTask{SKU: "MW01", Limit: 1}, errExpected},
		{"page query", "FindSubscriptionsBySKU", nil, capacity.ReconcileTask{SKU: "MW01", Limit: 1}, errExpected},
		{"save", "SaveMeasurements", nil, capacity.ReconcileTask{SKU: "MW01", Limit: 1}, errExpected},
		{"enqueue", "", errExpected, capacity.ReconcileTask{SKU: "MW01", Limit: 1}, errExpected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newReconciler(t, nil)
			store := &fakeStore{
				errOn:     tc.errOn,
				offerings: map[string]*model.Offering{"MW01": {SKU: "MW01", Cores: Ptr(2)}},
				subs:      []*model.Subscription{subscription("s1", "MW01", 1), subscription("s2", "MW01", 1)},
			}
			_, err := r.ReconcileForOffering(t.Context(), store, &fakeEnqueuer{err: tc.enqErr}, tc.task)
			require.Error(t, err)
			assert.True(t, errs.Is(err, tc.wantErr), "got %v", err)
		})
	}
}

func TestReconcileForOfferingDenylistedWithoutOffering(t *testing.T) {
	r, _ := newReconciler(t, denylist{"GONE": true})
	sub := subscription("s1", "GONE", 1)
	sub.SetMeasurement(physicalCores, 4)
	store := &fakeStore{subs: []*model.Subscription{sub}}

	res, err := r.ReconcileForOffering(t.Context(), store, &fakeEnqueuer{}, capacity.ReconcileTask{SKU: "GONE", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Changed)
	assert.Empty(t, sub.Measurements)
}
