package events_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/tally/internal/contract"
	"github.com/cloud-gov/tally/internal/events"
)

var nullLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingEnqueuer struct {
	mu        sync.Mutex
	skus      []string
	contracts []contract.Contract
	err       error
	done      chan struct{}
}

func newRecordingEnqueuer() *recordingEnqueuer {
	return &recordingEnqueuer{done: make(chan struct{}, 10)}
}

func (r *recordingEnqueuer) EnqueueOfferingSync(_ context.Context, sku string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skus = append(r.skus, sku)
	r.done <- struct{}{}
	return r.err
}

func (r *recordingEnqueuer) EnqueueContractSync(_ context.Context, c contract.Contract) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts = append(r.contracts, c)
	r.done <- struct{}{}
	return r.err
}

func TestHandleOfferingChanged(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		enqErr   error
		wantSKUs []string
		wantErr  bool
	}{
		{"valid", `{"sku":" MW01 "}`, nil, []string{"MW01"}, false},
		{"malformed is acknowledged", `{"sku":`, nil, nil, false},
		{"missing sku is acknowledged", `{}`, nil, nil, false},
		{"enqueue failure is retried", `{"sku":"MW01"}`, assert.AnError, []string{"MW01"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enq := newRecordingEnqueuer()
			enq.err = tc.enqErr
			c := events.NewConsumer(nullLogger, enq)

			err := c.HandleOfferingChanged(message.NewMessage(watermill.NewUUID(), []byte(tc.payload)))
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantSKUs, enq.skus)
		})
	}
}

func TestHandleContractChanged(t *testing.T) {
	enq := newRecordingEnqueuer()
	c := events.NewConsumer(nullLogger, enq)

	payload := `{"subscription_id":"sub-1","org_id":"org1","sku":"MW01","product_tags":["rosa"],
		"entitlement":{"source_partner":"aws","aws_customer_account_id":"acct"},
		"dimensions":[{"name":"four_vcpu_hour","value":8}]}`
	require.NoError(t, c.HandleContractChanged(message.NewMessage(watermill.NewUUID(), []byte(payload))))
	require.NoError(t, c.HandleContractChanged(message.NewMessage(watermill.NewUUID(), []byte(`{"org_id":"org1"}`))))

	require.Len(t, enq.contracts, 1)
	got := enq.contracts[0]
	assert.Equal(t, "sub-1", got.SubscriptionID)
	assert.Equal(t, "acct", got.Entitlement.BillingAccountID())
	assert.Equal(t, []contract.Dimension{{Name: "four_vcpu_hour", Value: 8}}, got.Dimensions)
}

func TestRouterDeliversOfferingEvents(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, watermill.NopLogger{})
	router, err := events.NewRouter(nullLogger)
	require.NoError(t, err)

	enq := newRecordingEnqueuer()
	events.NewConsumer(nullLogger, enq).Register(router, pubSub, "offerings", "")

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	require.NoError(t, pubSub.Publish("offerings", message.NewMessage(watermill.NewUUID(), []byte(`{"sku":"MW01"}`))))

	select {
	case <-enq.done:
	case <-time.After(5 * time.Second):
		t.Fatal("offering event was not handled")
	}
	require.NoError(t, router.Close())

	enq.mu.Lock()
	defer enq.mu.Unlock()
	assert.Equal(t, []string{"MW01"}, enq.skus)
}
