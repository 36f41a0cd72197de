package dbx

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/cloud-gov/tally/internal/db"
	"github.com/cloud-gov/tally/internal/model"
)

func pgUUID(u uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: u, Valid: true}
}

func fromPgUUID(u pgtype.UUID) uuid.UUID {
	if !u.Valid {
		return uuid.Nil
	}
	return uuid.UUID(u.Bytes)
}

func pgTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

// pgTimePtr maps nil to SQL NULL.
func pgTimePtr(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgTime(*t)
}

func fromPgTimePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func pgInt4(v *int) pgtype.Int4 {
	if v == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*v), Valid: true}
}

func fromPgInt4(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int32)
	return &i
}

// filter maps the "_ANY" wildcard to the empty string, which the queries treat as "no filter".
func filter[T ~string](v T) string {
	if string(v) == model.Any {
		return ""
	}
	return string(v)
}

func toOffering(row db.Offering) *model.Offering {
	return &model.Offering{
		SKU:               row.Sku,
		ProductName:       row.ProductName,
		ProductFamily:     row.ProductFamily,
		Role:              row.Role,
		ServiceLevel:      model.ServiceLevel(row.ServiceLevel),
		Usage:             model.Usage(row.Usage),
		ProductTags:       row.ProductTags,
		Cores:             fromPgInt4(row.Cores),
		Sockets:           fromPgInt4(row.Sockets),
		HypervisorCores:   fromPgInt4(row.HypervisorCores),
		HypervisorSockets: fromPgInt4(row.HypervisorSockets),
		HasUnlimitedUsage: row.HasUnlimitedUsage,
		Metered:           row.Metered,
	}
}

func toUpsertOfferingParams(o *model.Offering) db.UpsertOfferingParams {
	tags := o.ProductTags
	if tags == nil {
		tags = []string{}
	}
	return db.UpsertOfferingParams{
		Sku:               o.SKU,
		ProductName:       o.ProductName,
		ProductFamily:     o.ProductFamily,
		Role:              o.Role,
		ServiceLevel:      string(o.ServiceLevel),
		Usage:             string(o.Usage),
		ProductTags:       tags,
		Cores:             pgInt4(o.Cores),
		Sockets:           pgInt4(o.Sockets),
		HypervisorCores:   pgInt4(o.HypervisorCores),
		HypervisorSockets: pgInt4(o.HypervisorSockets),
		HasUnlimitedUsage: o.HasUnlimitedUsage,
		Metered:           o.Metered,
	}
}

func toSubscription(row db.Subscription) *model.Subscription {
	return &model.Subscription{
		SubscriptionID:     row.SubscriptionID,
		StartDate:          row.StartDate.Time.UTC(),
		EndDate:            fromPgTimePtr(row.EndDate),
		OrgID:              row.OrgID,
		SKU:                row.Sku,
		Quantity:           row.Quantity,
		SubscriptionNumber: row.SubscriptionNumber,
		BillingProvider:    model.BillingProvider(row.BillingProvider),
		BillingProviderID:  row.BillingProviderID,
		BillingAccountID:   row.BillingAccountID,
		Measurements:       map[model.MeasurementKey]float64{},
	}
}

// versionKey identifies a subscription version independent of time zone.
type versionKey struct {
	id    string
	start int64
}

func keyOf(id string, start time.Time) versionKey {
	return versionKey{id: id, start: start.UnixMicro()}
}

func toInstance(row db.Host) *model.Instance {
	inst := model.NewInstance(row.OrgID, row.InstanceID)
	inst.ID = fromPgUUID(row.ID)
	inst.DisplayName = row.DisplayName
	inst.BillingProvider = model.BillingProvider(row.BillingProvider)
	inst.BillingAccountID = row.BillingAccountID
	inst.HardwareType = model.HostHardwareType(row.HardwareType)
	inst.CloudProvider = row.CloudProvider
	inst.Guest = row.IsGuest
	inst.Hypervisor = row.IsHypervisor
	inst.HypervisorUUID = row.HypervisorUuid
	inst.NumOfGuests = int(row.NumOfGuests)
	inst.LastSeen = row.LastSeen.Time.UTC()
	return inst
}

func toUpsertHostParams(inst *model.Instance) db.UpsertHostParams {
	return db.UpsertHostParams{
		ID:               pgUUID(inst.ID),
		OrgID:            inst.OrgID,
		InstanceID:       inst.InstanceID,
		DisplayName:      inst.DisplayName,
		BillingProvider:  string(inst.BillingProvider),
		BillingAccountID: inst.BillingAccountID,
		HardwareType:     string(inst.HardwareType),
		CloudProvider:    inst.CloudProvider,
		IsGuest:          inst.Guest,
		IsHypervisor:     inst.Hypervisor,
		HypervisorUuid:   inst.HypervisorUUID,
		NumOfGuests:      int32(inst.NumOfGuests),
		LastSeen:         pgTime(inst.LastSeen),
	}
}

func toBucket(row db.HostTallyBucket) model.Bucket {
	return model.Bucket{
		Key: model.BucketKey{
			InstanceID:       fromPgUUID(row.HostID),
			ProductID:        row.ProductID,
			SLA:              model.ServiceLevel(row.Sla),
			Usage:            model.Usage(row.Usage),
			BillingProvider:  model.BillingProvider(row.BillingProvider),
			BillingAccountID: row.BillingAccountID,
			AsHypervisor:     row.AsHypervisor,
		},
		Cores:           int(row.Cores),
		Sockets:         int(row.Sockets),
		MeasurementType: model.HardwareMeasurementType(row.MeasurementType),
	}
}

func toTallySnapshot(row db.TallySnapshot) model.TallySnapshot {
	return model.TallySnapshot{
		ID:               fromPgUUID(row.ID),
		OrgID:            row.OrgID,
		ProductID:        row.ProductID,
		SLA:              model.ServiceLevel(row.Sla),
		Usage:            model.Usage(row.Usage),
		BillingProvider:  model.BillingProvider(row.BillingProvider),
		BillingAccountID: row.BillingAccountID,
		Granularity:      model.Granularity(row.Granularity),
		SnapshotDate:     row.SnapshotDate.Time.UTC(),
		Measurements:     map[model.MeasurementKey]float64{},
	}
}
