// Package metrics регистрирует счётчики Prometheus сервиса отметки посещений.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckinOutcomes число отметок по итоговому статусу.
	CheckinOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_outcomes_total",
		Help: "Number of check-in requests by resulting status.",
	}, []string{"flow", "status"})

	// AttendancesRecorded число записанных посещений.
	AttendancesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendances_recorded_total",
		Help: "Number of attendance rows inserted.",
	})

	// ScheduleConflicts число отклонённых из-за пересечений пакетов тренировок.
	ScheduleConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedule_conflicts_total",
		Help: "Number of training batches rejected because of schedule overlaps.",
	})

	// TrainingsMaterialized число тренировок, созданных из шаблонов.
	TrainingsMaterialized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trainings_materialized_total",
		Help: "Number of trainings created on demand from weekly templates.",
	})
)
