package storage

import (
	"context"
	"fmt"
	"time"
)

// IntervalPeriodSummary holds aggregated interval session stats for one period.
type IntervalPeriodSummary struct {
	Sessions        int     `json:"sessions"`
	Completed       int     `json:"completed"`
	RoundsRecorded  int     `json:"rounds_recorded"`
	TotalWorkSec    int     `json:"total_work_sec"`
	AvgRoundWorkSec float64 `json:"avg_round_work_sec"`
	CompletionRate  float64 `json:"completion_rate"`
}

// StrengthPlanSummary holds the planned strength volume active in a period:
// working sets and target reps across templates scheduled in that period.
type StrengthPlanSummary struct {
	ScheduledWorkouts int `json:"scheduled_workouts"`
	CompletedWorkouts int `json:"completed_workouts"`
	PlannedSets       int `json:"planned_sets"`
	PlannedReps       int `json:"planned_reps"`
}

// TrainingSummaryPeriod holds combined interval + schedule data for one period.
type TrainingSummaryPeriod struct {
	Period    string                 `json:"period"`
	Intervals *IntervalPeriodSummary `json:"intervals,omitempty"`
	Plan      *StrengthPlanSummary   `json:"plan,omitempty"`
}

// GetTrainingSummary returns aggregated interval and schedule stats per period.
func (db *DB) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, userID int) ([]TrainingSummaryPeriod, error) {
	// Query 1: interval session stats grouped by period
	intervalRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, s.started_at)::date AS period,
		        COUNT(DISTINCT s.id)::int,
		        COUNT(DISTINCT s.id) FILTER (WHERE s.completed)::int,
		        COUNT(r.session_id)::int,
		        COALESCE(SUM(r.work_seconds), 0)::int
		 FROM interval_sessions s
		 LEFT JOIN interval_rounds r ON r.session_id = s.id
		 WHERE s.started_at >= $2 AND s.started_at < $3 AND s.user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying interval summary: %w", err)
	}
	defer intervalRows.Close()

	periodMap := make(map[string]*TrainingSummaryPeriod)
	var periodOrder []string

	for intervalRows.Next() {
		var periodTime time.Time
		var is IntervalPeriodSummary
		if err := intervalRows.Scan(&periodTime, &is.Sessions, &is.Completed, &is.RoundsRecorded, &is.TotalWorkSec); err != nil {
			return nil, fmt.Errorf("scanning interval summary: %w", err)
		}
		if is.RoundsRecorded > 0 {
			is.AvgRoundWorkSec = float64(is.TotalWorkSec) / float64(is.RoundsRecorded)
		}
		if is.Sessions > 0 {
			is.CompletionRate = float64(is.Completed) / float64(is.Sessions)
		}
		key := periodTime.Format("2006-01-02")
		if _, ok := periodMap[key]; !ok {
			periodMap[key] = &TrainingSummaryPeriod{Period: key}
			periodOrder = append(periodOrder, key)
		}
		periodMap[key].Intervals = &is
	}
	if err := intervalRows.Err(); err != nil {
		return nil, err
	}

	// Query 2: planned strength volume from the schedule, grouped by period
	planRows, err := db.Pool.Query(ctx,
		`SELECT date_trunc($1, sc.scheduled_on)::date AS period,
		        COUNT(DISTINCT sc.id)::int,
		        COUNT(DISTINCT sc.id) FILTER (WHERE sc.completed_at IS NOT NULL)::int,
		        COALESCE(SUM(g.sets) FILTER (WHERE NOT g.is_warmup), 0)::int,
		        COALESCE(SUM(g.sets * g.target_reps) FILTER (WHERE NOT g.is_warmup), 0)::int
		 FROM schedule sc
		 JOIN set_groups g ON g.template_id = sc.template_id
		 WHERE sc.scheduled_on >= $2 AND sc.scheduled_on < $3 AND sc.user_id = $4
		 GROUP BY period
		 ORDER BY period DESC`,
		truncInterval(bucket), start, end, userID)
	if err != nil {
		return nil, fmt.Errorf("querying plan summary: %w", err)
	}
	defer planRows.Close()

	for planRows.Next() {
		var periodTime time.Time
		var ps StrengthPlanSummary
		if err := planRows.Scan(&periodTime, &ps.ScheduledWorkouts, &ps.CompletedWorkouts, &ps.PlannedSets, &ps.PlannedReps); err != nil {
			return nil, fmt.Errorf("scanning plan summary: %w", err)
		}
		key := periodTime.Format("2006-01-02")
		if _, ok := periodMap[key]; !ok {
			periodMap[key] = &TrainingSummaryPeriod{Period: key}
			periodOrder = append(periodOrder, key)
		}
		periodMap[key].Plan = &ps
	}
	if err := planRows.Err(); err != nil {
		return nil, err
	}

	result := make([]TrainingSummaryPeriod, 0, len(periodOrder))
	for _, key := range periodOrder {
		result = append(result, *periodMap[key])
	}
	return result, nil
}

// truncInterval converts bucket strings like "1 month" to the interval name
// that date_trunc expects (e.g. "month", "week").
func truncInterval(bucket string) string {
	switch bucket {
	case "1 day":
		return "day"
	case "1 week":
		return "week"
	case "1 month":
		return "month"
	default:
		return "week"
	}
}
