package upstream

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/cloud-gov/tally/internal/tally"
)

const inventoryPageSize = 1000

type factsPage struct {
	Data []tally.Facts `json:"data"`
}

// InventoryClient reads normalized host facts from the inventory service.
type InventoryClient struct {
	c        *client
	pageSize int
}

func NewInventoryClient(baseURL string, logger *slog.Logger, opts Options) (*InventoryClient, error) {
	c, err := newClient(baseURL, logger.WithGroup("inventory-api"), opts)
	if err != nil {
		return nil, err
	}
	return &InventoryClient{c: c, pageSize: inventoryPageSize}, nil
}

func (i *InventoryClient) Name() string {
	return "inventory"
}

// ReadFacts pages through every host the inventory knows about.
func (i *InventoryClient) ReadFacts(ctx context.Context) ([]tally.Facts, error) {
	var all []tally.Facts
	for offset := 0; ; offset += i.pageSize {
		var page factsPage
		q := url.Values{
			"offset": {strconv.Itoa(offset)},
			"limit":  {strconv.Itoa(i.pageSize)},
		}
		if err := i.c.getJSON(ctx, "facts", q, &page); err != nil {
			return all, err
		}
		all = append(all, page.Data...)
		if len(page.Data) < i.pageSize {
			return all, nil
		}
	}
}
