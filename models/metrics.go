package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// upsertRecords counts submitted statistics rows by table and outcome
	upsertRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "villagestats_upsert_records_total",
		Help: "Statistics rows written by bulk upsert, by table and result",
	}, []string{"table", "result"})

	upsertDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "villagestats_upsert_duration_seconds",
		Help:    "Bulk upsert duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"table"})

	villageOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "villagestats_village_registry_ops_total",
		Help: "Village registry mutations by operation",
	}, []string{"operation"})

	orphansPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "villagestats_orphans_purged_total",
		Help: "Orphaned statistics rows deleted by maintenance",
	})
)
