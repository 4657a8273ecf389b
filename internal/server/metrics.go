package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	projectsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devtracker_projects_created_total",
		Help: "Projects created through the API.",
	})

	notificationResponses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "devtracker_notification_responses_total",
		Help: "Notification responses recorded, by response.",
	}, []string{"response"})

	assignmentsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "devtracker_assignments_finalized_total",
		Help: "Assignments finalized.",
	})
)
