// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flimey Contributors

package modeling

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Status label values for service operation metrics.
const (
	MetricStatusSuccess   = "success"
	MetricStatusInvalid   = "invalid"
	MetricStatusNotFound  = "not_found"
	MetricStatusForbidden = "forbidden"
	MetricStatusError     = "error"
)

// SchemaMutations counts schema mutations (constraint add/remove, version
// operations) by operation and status.
// Use RegisterMetrics to register this with a Prometheus registry.
var SchemaMutations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flimey_schema_mutations_total",
		Help: "Total number of schema mutation operations",
	},
	[]string{"operation", "status"},
)

// EntityMutations counts entity mutations by operation and status.
// Use RegisterMetrics to register this with a Prometheus registry.
var EntityMutations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "flimey_entity_mutations_total",
		Help: "Total number of entity mutation operations",
	},
	[]string{"operation", "kind", "status"},
)

// MutationDuration observes the duration of transactional mutations.
// Use RegisterMetrics to register this with a Prometheus registry.
var MutationDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "flimey_mutation_duration_seconds",
		Help:    "Transactional mutation duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"operation"},
)

// RegisterMetrics registers all modeling metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(SchemaMutations, EntityMutations, MutationDuration)
}

// outcomeLabel maps a service error to its metric status label.
func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return MetricStatusSuccess
	case IsValidation(err):
		return MetricStatusInvalid
	default:
		return MetricStatusError
	}
}
