package contract

import (
	"context"
	"strings"
	"time"

	"github.com/cloud-gov/tally/internal/errs"
	"github.com/cloud-gov/tally/internal/model"
)

// Entitlement is the marketplace side of a contract: who bought it, through which partner, and the entitlement's own term.
type Entitlement struct {
	SourcePartner        model.BillingProvider `json:"source_partner"`
	StartDate            *time.Time            `json:"start_date,omitempty"`
	EndDate              *time.Time            `json:"end_date,omitempty"`
	AwsCustomerAccountID string                `json:"aws_customer_account_id,omitempty"`
	AwsProductCode       string                `json:"aws_product_code,omitempty"`
	AwsCustomerID        string                `json:"aws_customer_id,omitempty"`
	AwsSellerAccountID   string                `json:"aws_seller_account_id,omitempty"`
	AzureTenantID        string                `json:"azure_tenant_id,omitempty"`
	AzureSubscriptionID  string                `json:"azure_subscription_id,omitempty"`
	AzureResourceID      string                `json:"azure_resource_id,omitempty"`
	AzurePlanID          string                `json:"azure_plan_id,omitempty"`
	AzureOfferID         string                `json:"azure_offer_id,omitempty"`
}

type Contract struct {
	SubscriptionID     string      `json:"subscription_id"`
	SubscriptionNumber string      `json:"subscription_number"`
	OrgID              string      `json:"org_id"`
	SKU                string      `json:"sku"`
	ProductTags        []string    `json:"product_tags"`
	StartDate          *time.Time  `json:"start_date,omitempty"`
	EndDate            *time.Time  `json:"end_date,omitempty"`
	Entitlement        Entitlement `json:"entitlement"`
	Dimensions         []Dimension `json:"dimensions"`
}

// BillingAccountID is the AWS customer account, else "tenant;subscription" for Azure, else the Azure tenant alone.
func (e Entitlement) BillingAccountID() string {
	switch {
	case e.AwsCustomerAccountID != "":
		return e.AwsCustomerAccountID
	case e.AzureTenantID != "" && e.AzureSubscriptionID != "":
		return e.AzureTenantID + ";" + e.AzureSubscriptionID
	default:
		return e.AzureTenantID
	}
}

func (e Entitlement) BillingProviderID() string {
	switch e.SourcePartner {
	case model.BillingProviderAWS:
		return strings.Join([]string{e.AwsProductCode, e.AwsCustomerID, e.AwsSellerAccountID}, ";")
	case model.BillingProviderAzure:
		return strings.Join([]string{e.AzureResourceID, e.AzurePlanID, e.AzureOfferID}, ";")
	default:
		return ""
	}
}

// ToSubscription maps c onto a subscription of quantity 1 whose measurements are the translated contract dimensions. Contract dates win over entitlement dates.
func (t *Translator) ToSubscription(ctx context.Context, c Contract) (*model.Subscription, error) {
	start := firstDate(c.StartDate, c.Entitlement.StartDate)
	if start == nil {
		return nil, errs.Newf("contract %s has no start date", c.SubscriptionNumber).Mark(errs.ErrValidation)
	}
	measurements, err := t.TranslateMeasurements(ctx, c.Entitlement.SourcePartner, c.ProductTags, c.Dimensions)
	if err != nil {
		return nil, err
	}
	sub := &model.Subscription{
		SubscriptionID:     c.SubscriptionID,
		SubscriptionNumber: c.SubscriptionNumber,
		OrgID:              c.OrgID,
		SKU:                c.SKU,
		Quantity:           1,
		StartDate:          *start,
		EndDate:            firstDate(c.EndDate, c.Entitlement.EndDate),
		BillingProvider:    c.Entitlement.SourcePartner,
		BillingProviderID:  c.Entitlement.BillingProviderID(),
		BillingAccountID:   c.Entitlement.BillingAccountID(),
		Measurements:       measurements,
	}
	return sub, nil
}

func firstDate(dates ...*time.Time) *time.Time {
	for _, d := range dates {
		if d != nil {
			v := d.UTC()
			return &v
		}
	}
	return nil
}
