package upstream

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/cloud-gov/tally/internal/model"
)

type offeringResponse struct {
	SKU               string   `json:"sku"`
	ProductName       string   `json:"productName"`
	ProductFamily     string   `json:"productFamily"`
	Role              string   `json:"role"`
	ServiceLevel      string   `json:"serviceLevel"`
	Usage             string   `json:"usage"`
	ProductTags       []string `json:"productTags"`
	Cores             *int     `json:"cores"`
	Sockets           *int     `json:"sockets"`
	HypervisorCores   *int     `json:"hypervisorCores"`
	HypervisorSockets *int     `json:"hypervisorSockets"`
	HasUnlimitedUsage bool     `json:"hasUnlimitedUsage"`
	Metered           bool     `json:"metered"`
}

// ProductClient reads offerings from the product catalog service.
type ProductClient struct {
	c *client
}

func NewProductClient(baseURL string, logger *slog.Logger, opts Options) (*ProductClient, error) {
	c, err := newClient(baseURL, logger.WithGroup("product-api"), opts)
	if err != nil {
		return nil, err
	}
	return &ProductClient{c: c}, nil
}

func (p *ProductClient) FetchOffering(ctx context.Context, sku string) (*model.Offering, error) {
	var r offeringResponse
	if err := p.c.getJSON(ctx, "offerings/"+url.PathEscape(sku), nil, &r); err != nil {
		return nil, err
	}
	return &model.Offering{
		SKU:               sku,
		ProductName:       r.ProductName,
		ProductFamily:     r.ProductFamily,
		Role:              r.Role,
		ServiceLevel:      model.ParseServiceLevel(r.ServiceLevel),
		Usage:             model.ParseUsage(r.Usage),
		ProductTags:       r.ProductTags,
		Cores:             r.Cores,
		Sockets:           r.Sockets,
		HypervisorCores:   r.HypervisorCores,
		HypervisorSockets: r.HypervisorSockets,
		HasUnlimitedUsage: r.HasUnlimitedUsage,
		Metered:           r.Metered,
	}, nil
}
