package reader_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloud-gov/tally/internal/clock"
	"github.com/cloud-gov/tally/internal/tally"
	"github.com/cloud-gov/tally/internal/usage/reader"
)

type stubSource struct {
	name  string
	facts []tally.Facts
	err   error
}

func (s stubSource) ReadFacts(context.Context) ([]tally.Facts, error) {
	return s.facts, s.err
}

func (s stubSource) Name() string {
	return s.name
}

var errExpected = errors.New("this error was expected")

func TestRead(t *testing.T) {
	now := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	a := stubSource{name: "a", facts: []tally.Facts{{InstanceID: "a-1"}, {InstanceID: "a-2"}}}
	b := stubSource{name: "b", facts: []tally.Facts{{InstanceID: "b-1"}}}
	broken := stubSource{name: "broken", facts: []tally.Facts{{InstanceID: "partial"}}, err: errExpected}

	cases := []struct {
		name    string
		sources []reader.FactSource
		wantIDs []string
		wantErr bool
	}{
		{"no sources", nil, []string{}, false},
		{"all succeed", []reader.FactSource{a, b}, []string{"a-1", "a-2", "b-1"}, false},
		{"partial failure keeps facts", []reader.FactSource{a, broken}, []string{"a-1", "a-2", "partial"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := reader.New(clock.NewFakeClock(now), tc.sources...)
			reading, err := r.Read(t.Context())
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errExpected)
				assert.Contains(t, err.Error(), "broken")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, now, reading.Time)

			ids := []string{}
			for _, f := range reading.Facts {
				ids = append(ids, f.InstanceID)
			}
			assert.Equal(t, tc.wantIDs, ids)
		})
	}
}
