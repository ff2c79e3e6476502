package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	suggestionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "suggestbox_suggestions_created_total",
		Help: "Suggestions created since process start.",
	})
	suggestionsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "suggestbox_suggestions_deleted_total",
		Help: "Suggestions deleted since process start.",
	})
	votesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suggestbox_votes_total",
		Help: "Vote mutations applied, by outcome.",
	}, []string{"result"})
	persistFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "suggestbox_persist_failures_total",
		Help: "Full-document saves that failed and were logged.",
	})
)
