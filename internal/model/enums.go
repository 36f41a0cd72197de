package model

import (
	"slices"
	"strings"
)

// parse returns the value in values matching s case-insensitively, or the zero value. It never fails, so callers can rely on it for defaulting.
func parse[T ~string](s string, values []T) T {
	s = strings.TrimSpace(s)
	for _, v := range values {
		if strings.EqualFold(string(v), s) {
			return v
		}
	}
	var zero T
	return zero
}

// Any is the wildcard used in bucket and snapshot keys to mean "every value of this dimension".
const Any = "_ANY"

type ServiceLevel string

const (
	ServiceLevelEmpty       ServiceLevel = ""
	ServiceLevelPremium     ServiceLevel = "Premium"
	ServiceLevelStandard    ServiceLevel = "Standard"
	ServiceLevelSelfSupport ServiceLevel = "Self-Support"
	ServiceLevelNone        ServiceLevel = "None"
	ServiceLevelAny         ServiceLevel = Any
)

var serviceLevels = []ServiceLevel{
	ServiceLevelPremium, ServiceLevelStandard, ServiceLevelSelfSupport, ServiceLevelNone, ServiceLevelAny,
}

// ParseServiceLevel returns [ServiceLevelEmpty] for anything it does not recognize.
func ParseServiceLevel(s string) ServiceLevel {
	return parse(s, serviceLevels)
}

func (s ServiceLevel) String() string { return string(s) }

type Usage string

const (
	UsageEmpty            Usage = ""
	UsageProduction       Usage = "Production"
	UsageDevelopmentTest  Usage = "Development/Test"
	UsageDisasterRecovery Usage = "Disaster Recovery"
	UsageAny              Usage = Any
)

var usages = []Usage{UsageProduction, UsageDevelopmentTest, UsageDisasterRecovery, UsageAny}

// ParseUsage returns [UsageEmpty] for anything it does not recognize.
func ParseUsage(s string) Usage {
	return parse(s, usages)
}

func (u Usage) String() string { return string(u) }

type BillingProvider string

const (
	BillingProviderEmpty  BillingProvider = ""
	BillingProviderRedHat BillingProvider = "red hat"
	BillingProviderAWS    BillingProvider = "aws"
	BillingProviderGCP    BillingProvider = "gcp"
	BillingProviderAzure  BillingProvider = "azure"
	BillingProviderOracle BillingProvider = "oracle"
	BillingProviderAny    BillingProvider = Any
)

var billingProviders = []BillingProvider{
	BillingProviderRedHat, BillingProviderAWS, BillingProviderGCP, BillingProviderAzure, BillingProviderOracle, BillingProviderAny,
}

// ParseBillingProvider returns [BillingProviderEmpty] for anything it does not recognize.
func ParseBillingProvider(s string) BillingProvider {
	return parse(s, billingProviders)
}

func (b BillingProvider) String() string { return string(b) }

// HardwareMeasurementType classifies what kind of hardware a capacity or usage contribution came from.
type HardwareMeasurementType string

const (
	MeasurementPhysical   HardwareMeasurementType = "PHYSICAL"
	MeasurementHypervisor HardwareMeasurementType = "HYPERVISOR"
	MeasurementVirtual    HardwareMeasurementType = "VIRTUAL"
	MeasurementTotal      HardwareMeasurementType = "TOTAL"
	MeasurementAWS        HardwareMeasurementType = "AWS"
	MeasurementGoogle     HardwareMeasurementType = "GOOGLE"
	MeasurementAzure      HardwareMeasurementType = "AZURE"
	MeasurementAlibaba    HardwareMeasurementType = "ALIBABA"
	// MeasurementEmpty marks a bucket that fits no concrete hardware category. Such buckets are kept for SLA and usage filtering but never counted.
	MeasurementEmpty HardwareMeasurementType = "EMPTY"
)

var measurementTypes = []HardwareMeasurementType{
	MeasurementPhysical, MeasurementHypervisor, MeasurementVirtual, MeasurementTotal,
	MeasurementAWS, MeasurementGoogle, MeasurementAzure, MeasurementAlibaba, MeasurementEmpty,
}

// CloudMeasurementTypes lists every cloud-provider specific measurement type.
var CloudMeasurementTypes = []HardwareMeasurementType{
	MeasurementAWS, MeasurementGoogle, MeasurementAzure, MeasurementAlibaba,
}

// ParseHardwareMeasurementType returns [MeasurementEmpty] for anything it does not recognize.
func ParseHardwareMeasurementType(s string) HardwareMeasurementType {
	if t := parse(s, measurementTypes); t != "" {
		return t
	}
	return MeasurementEmpty
}

func (t HardwareMeasurementType) IsCloud() bool {
	return slices.Contains(CloudMeasurementTypes, t)
}

// MeasurementTypeForCloudProvider maps an inventory cloud provider name onto its measurement type.
func MeasurementTypeForCloudProvider(provider string) HardwareMeasurementType {
	switch strings.ToUpper(strings.TrimSpace(provider)) {
	case "AWS":
		return MeasurementAWS
	case "GOOGLE", "GCP":
		return MeasurementGoogle
	case "AZURE":
		return MeasurementAzure
	case "ALIBABA":
		return MeasurementAlibaba
	default:
		return MeasurementEmpty
	}
}

type HostHardwareType string

const (
	HardwareEmpty       HostHardwareType = ""
	HardwarePhysical    HostHardwareType = "PHYSICAL"
	HardwareVirtualized HostHardwareType = "VIRTUALIZED"
	HardwareCloud       HostHardwareType = "CLOUD"
)

func ParseHostHardwareType(s string) HostHardwareType {
	return parse(s, []HostHardwareType{HardwarePhysical, HardwareVirtualized, HardwareCloud})
}

// ReportCategory narrows a tally report to one hardware category. The empty category means "all hardware".
type ReportCategory string

const (
	CategoryAll        ReportCategory = ""
	CategoryPhysical   ReportCategory = "PHYSICAL"
	CategoryVirtual    ReportCategory = "VIRTUAL"
	CategoryHypervisor ReportCategory = "HYPERVISOR"
	CategoryCloud      ReportCategory = "CLOUD"
)

func ParseReportCategory(s string) ReportCategory {
	return parse(s, []ReportCategory{CategoryPhysical, CategoryVirtual, CategoryHypervisor, CategoryCloud})
}

// MeasurementTypes returns the measurement types whose values make up the category.
func (c ReportCategory) MeasurementTypes() []HardwareMeasurementType {
	switch c {
	case CategoryPhysical:
		return []HardwareMeasurementType{MeasurementPhysical}
	case CategoryVirtual:
		return []HardwareMeasurementType{MeasurementVirtual}
	case CategoryHypervisor:
		return []HardwareMeasurementType{MeasurementHypervisor}
	case CategoryCloud:
		return CloudMeasurementTypes
	default:
		return []HardwareMeasurementType{MeasurementTotal}
	}
}

// HypervisorReportCategory filters capacity reports by the measurement type of subscription capacity.
type HypervisorReportCategory string

const (
	CapacityCategoryAll           HypervisorReportCategory = ""
	CapacityCategoryHypervisor    HypervisorReportCategory = "HYPERVISOR"
	CapacityCategoryNonHypervisor HypervisorReportCategory = "NON_HYPERVISOR"
)

func ParseHypervisorReportCategory(s string) HypervisorReportCategory {
	return parse(s, []HypervisorReportCategory{CapacityCategoryHypervisor, CapacityCategoryNonHypervisor})
}

// MeasurementType returns the subscription measurement type the category selects, or "" for no filter.
func (c HypervisorReportCategory) MeasurementType() HardwareMeasurementType {
	switch c {
	case CapacityCategoryHypervisor:
		return MeasurementHypervisor
	case CapacityCategoryNonHypervisor:
		return MeasurementPhysical
	default:
		return ""
	}
}
