package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	classifierTierUsage = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "compralens_classifier_results_total",
		Help: "Classification results by the cascade tier that produced them.",
	}, []string{"method"})

	documentsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compralens_documents_processed_total",
		Help: "Documents that completed the OCR and extraction pipeline.",
	})

	documentFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compralens_document_failures_total",
		Help: "Documents for which every extraction fallback failed.",
	})
)
