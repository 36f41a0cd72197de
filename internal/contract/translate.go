// Package contract turns marketplace contracts into subscriptions: cloud billing dimensions are translated into catalog metrics and contract identifiers are mapped onto subscription fields.
package contract

import (
	"context"
	"log/slog"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
	"github.com/cloud-gov/tally/internal/product"
)

// Dimension is one billed quantity on a contract, named the way the marketplace names it.
type Dimension struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// MetricLookup returns the catalog metrics of a product tag.
type MetricLookup interface {
	Metrics(tag string) []product.Metric
}

type Translator struct {
	logger  *slog.Logger
	metrics MetricLookup
}

func NewTranslator(logger *slog.Logger, metrics MetricLookup) *Translator {
	return &Translator{
		logger:  logger.WithGroup("contract"),
		metrics: metrics,
	}
}

// TranslateMeasurements converts marketplace dimensions into PHYSICAL subscription measurements keyed by catalog metric id, dividing each value by the metric's billing factor. Dimensions the first product tag does not define are dropped. Billing providers other than AWS and Azure fail with ErrUnsupported.
func (t *Translator) TranslateMeasurements(ctx context.Context, provider model.BillingProvider, productTags []string, dims []Dimension) (map[model.MeasurementKey]float64, error) {
	dimensionOf, err := dimensionFunc(provider)
	if err != nil {
		return nil, err
	}
	if len(productTags) == 0 {
		return nil, errs.New("contract has no product tag").Mark(errs.ErrValidation)
	}
	tag := productTags[0]
	metrics := t.metrics.Metrics(tag)

	out := make(map[model.MeasurementKey]float64, len(dims))
	for _, d := range dims {
		m, ok := lo.Find(metrics, func(m product.Metric) bool { return dimensionOf(m) != "" && dimensionOf(m) == d.Name })
		if !ok {
			t.logger.WarnContext(ctx, "contract: dropping unsupported dimension", "product_tag", tag, "dimension", d.Name, "billing_provider", provider)
			continue
		}
		v, _ := decimal.NewFromFloat(d.Value).Div(decimal.NewFromFloat(m.Factor())).Float64()
		out[model.MeasurementKey{MeasurementType: model.MeasurementPhysical, MetricID: m.ID}] = v
	}
	return out, nil
}

func dimensionFunc(provider model.BillingProvider) (func(product.Metric) string, error) {
	switch provider {
	case model.BillingProviderAWS:
		return func(m product.Metric) string { return m.AwsDimension }, nil
	case model.BillingProviderAzure:
		return func(m product.Metric) string { return m.AzureDimension }, nil
	default:
		return nil, errs.Newf("billing provider %q does not support contract metrics", provider).Mark(errs.ErrUnsupported)
	}
}
