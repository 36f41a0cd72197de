// Package product holds the product catalog (per product tag: finest reportable granularity, PAYG flag, metrics and their cloud billing dimensions) and the SKU denylist.
package product

import (
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/viper"

	"github.com/cloud-gov/tally/internal/model"
)

// Metric is a metric a product is measured by, with the dimension names cloud marketplaces bill it under.
type Metric struct {
	ID             model.MetricID `mapstructure:"id"`
	AwsDimension   string         `mapstructure:"awsDimension"`
	AzureDimension string         `mapstructure:"azureDimension"`
	// BillingFactor converts internal units into marketplace units. Nil means 1.
	BillingFactor *float64 `mapstructure:"billingFactor"`
}

// Factor returns the billing factor, defaulting to 1.
func (m Metric) Factor() float64 {
	if m.BillingFactor == nil {
		return 1
	}
	return *m.BillingFactor
}

type Product struct {
	ID string `mapstructure:"id"`
	// FinestGranularity is the highest resolution reports may be requested at.
	FinestGranularity model.Granularity `mapstructure:"finestGranularity"`
	Payg              bool              `mapstructure:"payg"`
	Metrics           []Metric          `mapstructure:"metrics"`
}

// Metric looks up a metric of the product, ignoring case.
func (p Product) Metric(id model.MetricID) (Metric, bool) {
	return lo.Find(p.Metrics, func(m Metric) bool { return m.ID.EqualFold(id) })
}

// SupportsGranularity reports whether g is not finer than the product's finest granularity.
func (p Product) SupportsGranularity(g model.Granularity) bool {
	return !g.FinerThan(p.FinestGranularity)
}

// Catalog is an immutable set of products keyed by tag.
type Catalog struct {
	products map[string]Product
}

// NewCatalog validates products and indexes them by tag. A missing finest granularity defaults to DAILY.
func NewCatalog(products []Product) (*Catalog, error) {
	c := &Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		p.ID = strings.TrimSpace(p.ID)
		if p.ID == "" {
			return nil, fmt.Errorf("product catalog: product without id")
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, fmt.Errorf("product catalog: duplicate product %q", p.ID)
		}
		if p.FinestGranularity == "" {
			p.FinestGranularity = model.Daily
		}
		g, ok := model.ParseGranularity(string(p.FinestGranularity))
		if !ok {
			return nil, fmt.Errorf("product catalog: %s has invalid granularity %q", p.ID, p.FinestGranularity)
		}
		p.FinestGranularity = g
		for i, m := range p.Metrics {
			if m.BillingFactor != nil && *m.BillingFactor <= 0 {
				return nil, fmt.Errorf("product catalog: %s metric %s has non-positive billing factor", p.ID, m.ID)
			}
			p.Metrics[i].ID = model.CanonicalMetricID(string(m.ID))
		}
		c.products[p.ID] = p
	}
	return c, nil
}

func (c *Catalog) Product(tag string) (Product, bool) {
	p, ok := c.products[tag]
	return p, ok
}

// Metrics returns the metrics of the product with the given tag, or nil for an unknown tag.
func (c *Catalog) Metrics(tag string) []Metric {
	return c.products[tag].Metrics
}

// Tags returns every product tag in the catalog.
func (c *Catalog) Tags() []string {
	return lo.Keys(c.products)
}

// Holder serves the current catalog and swaps it when the backing file changes.
type Holder struct {
	current atomic.Pointer[Catalog]
}

// NewHolder returns a Holder that always serves c. Use [Load] to follow a file.
func NewHolder(c *Catalog) *Holder {
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Load reads the catalog from the YAML file at path and reloads it whenever the file changes. Invalid reloads are logged and ignored, keeping the previous catalog.
func Load(path string, logger *slog.Logger) (*Holder, error) {
	logger = logger.WithGroup("product-catalog")
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading product catalog %s: %w", path, err)
	}
	c, err := decode(v)
	if err != nil {
		return nil, err
	}
	h := NewHolder(c)

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decode(v)
		if err != nil {
			logger.Error("reload failed, keeping previous catalog", "err", err)
			return
		}
		h.current.Store(updated)
		logger.Info("reloaded", "file", e.Name, "products", len(updated.products))
	})
	v.WatchConfig()
	return h, nil
}

func decode(v *viper.Viper) (*Catalog, error) {
	var products []Product
	if err := v.UnmarshalKey("products", &products); err != nil {
		return nil, fmt.Errorf("decoding product catalog: %w", err)
	}
	return NewCatalog(products)
}

func (h *Holder) Get() *Catalog {
	return h.current.Load()
}

func (h *Holder) Product(tag string) (Product, bool) {
	return h.Get().Product(tag)
}

func (h *Holder) Metrics(tag string) []Metric {
	return h.Get().Metrics(tag)
}
