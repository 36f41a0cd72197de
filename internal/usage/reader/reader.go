// Package reader reads host facts from the inventory systems that report billable instances.
package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/cloud-gov/tally/internal/clock"
	"github.com/cloud-gov/tally/internal/tally"
)

// Reading is every fact gathered at one point in time.
type Reading struct {
	Time  time.Time
	Facts []tally.Facts
}

// FactSource defines a system that can report normalized facts about the instances it knows, akin to a utility meter.
type FactSource interface {
	ReadFacts(context.Context) ([]tally.Facts, error)
	Name() string
}

// Reader reads facts from all configured sources and returns them in aggregate.
type Reader struct {
	sources []FactSource
	clock   clock.Clock
}

func New(c clock.Clock, sources ...FactSource) *Reader {
	return &Reader{
		sources: sources,
		clock:   c,
	}
}

// Read queries every source concurrently. Facts from sources that succeed are returned even when others fail; the failures are joined into the returned error.
func (r *Reader) Read(ctx context.Context) (Reading, error) {
	reading := Reading{
		Time:  r.clock.Now(),
		Facts: make([]tally.Facts, 0),
	}

	results := make([][]tally.Facts, len(r.sources))
	p := pool.New().WithErrors()
	for i, src := range r.sources {
		p.Go(func() error {
			facts, err := src.ReadFacts(ctx)
			results[i] = facts
			if err != nil {
				return fmt.Errorf("reading facts from %s: %w", src.Name(), err)
			}
			return nil
		})
	}
	err := p.Wait()

	for _, facts := range results {
		reading.Facts = append(reading.Facts, facts...)
	}
	return reading, err
}
