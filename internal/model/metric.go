package model

import "strings"

// MetricID names a measured quantity, e.g. "Cores". Comparisons are case-insensitive.
type MetricID string

const (
	MetricCores         MetricID = "Cores"
	MetricSockets       MetricID = "Sockets"
	MetricInstanceHours MetricID = "Instance-hours"
)

var knownMetrics = []MetricID{MetricCores, MetricSockets, MetricInstanceHours}

// UpperCaseFormatted is the form used to key instance measurements: "Instance-hours" becomes "INSTANCE_HOURS".
func (m MetricID) UpperCaseFormatted() string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(string(m)), "-", "_"))
}

func (m MetricID) EqualFold(other MetricID) bool {
	return m.UpperCaseFormatted() == other.UpperCaseFormatted()
}

// CanonicalMetricID maps any spelling of a known metric ("CORES", "instance_hours") to its canonical id. Unknown ids are returned trimmed but otherwise unchanged.
func CanonicalMetricID(s string) MetricID {
	m := MetricID(strings.TrimSpace(s))
	for _, k := range knownMetrics {
		if k.EqualFold(m) {
			return k
		}
	}
	return m
}

// MeasurementKey identifies one capacity or usage value by hardware type and metric.
type MeasurementKey struct {
	MeasurementType HardwareMeasurementType
	MetricID        MetricID
}

func (k MeasurementKey) String() string {
	return string(k.MeasurementType) + "/" + string(k.MetricID)
}
