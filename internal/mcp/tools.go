package mcp

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/gymflow/internal/models"
	"github.com/claude/gymflow/internal/storage"
)

// defaultTimeRange returns start/end defaulting to the last 7 days.
func defaultTimeRange(startStr, endStr string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	} else {
		start = end.AddDate(0, 0, -7)
	}

	return start, end, nil
}

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// --- Tool definitions ---

var toolGetSessions = mcp.NewTool("get_sessions",
	mcp.WithDescription("Query interval timer sessions. Returns configured rounds/work/rest, start and end times, whether the session completed, and how it was recorded (live or cli)."),
	mcp.WithString("start", mcp.Description("Start date (ISO 8601 or YYYY-MM-DD). Defaults to 7 days ago.")),
	mcp.WithString("end", mcp.Description("End date (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetSessionDetail = mcp.NewTool("get_session_detail",
	mcp.WithDescription("Retrieve one interval session with its recorded per-round work durations and phase transition events."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Session ID (UUID)")),
)

var toolGetTrainingSummary = mcp.NewTool("get_training_summary",
	mcp.WithDescription("Aggregated training volume per period: interval session counts, completion rate, recorded work seconds, plus planned strength sets/reps from the schedule."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to 6 months ago.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to now.")),
	mcp.WithString("bucket", mcp.Description("Aggregation period. Defaults to '1 month'."), mcp.Enum("1 day", "1 week", "1 month")),
)

var toolGetSetGroups = mcp.NewTool("get_set_groups",
	mcp.WithDescription("List workout templates with their strength set groups (exercise, sets x reps, weight, RIR targets). Pass template_id to fetch a single template."),
	mcp.WithString("template_id", mcp.Description("Template ID (UUID). When omitted, all templates are returned.")),
)

var toolGetSchedule = mcp.NewTool("get_schedule",
	mcp.WithDescription("Upcoming planned workouts with recurring entries (daily/weekly) expanded into concrete dates."),
	mcp.WithString("start", mcp.Description("Start date. Defaults to today.")),
	mcp.WithString("end", mcp.Description("End date. Defaults to 14 days from start.")),
)

var toolComparePeriods = mcp.NewTool("compare_periods",
	mcp.WithDescription("Compare interval training volume between two time periods (e.g. this month vs last month). Returns session counts, completion rate, and total work seconds for each."),
	mcp.WithString("period_a_start", mcp.Required(), mcp.Description("Period A start date")),
	mcp.WithString("period_a_end", mcp.Required(), mcp.Description("Period A end date")),
	mcp.WithString("period_b_start", mcp.Required(), mcp.Description("Period B start date")),
	mcp.WithString("period_b_end", mcp.Required(), mcp.Description("Period B end date")),
)

// --- Tool handlers ---

func (h *handlers) getSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, end, err := defaultTimeRange(req.GetString("start", ""), req.GetString("end", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	sessions, err := h.ds.QueryIntervalSessions(ctx, start, end, uid)
	if err != nil {
		h.log.Error("mcp get_sessions", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(sessions)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSessionDetail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idStr, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return mcp.NewToolResultError("invalid session ID: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)
	detail, err := h.ds.GetIntervalSession(ctx, id, uid)
	if err != nil {
		h.log.Error("mcp get_session_detail", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(detail)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getTrainingSummary(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	endStr := req.GetString("end", "")
	startStr := req.GetString("start", "")

	var start, end time.Time
	var err error

	if endStr != "" {
		end, err = parseFlexTime(endStr)
		if err != nil {
			return mcp.NewToolResultError("invalid end date: " + err.Error()), nil
		}
	} else {
		end = time.Now()
	}

	if startStr != "" {
		start, err = parseFlexTime(startStr)
		if err != nil {
			return mcp.NewToolResultError("invalid start date: " + err.Error()), nil
		}
	} else {
		start = end.AddDate(0, -6, 0)
	}

	bucket := req.GetString("bucket", "1 month")
	uid := UserIDFromContext(ctx)

	summary, err := h.ds.GetTrainingSummary(ctx, start, end, bucket, uid)
	if err != nil {
		h.log.Error("mcp get_training_summary", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(summary)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// templateWithGroups pairs a template with its set groups for tool output.
type templateWithGroups struct {
	Template  models.WorkoutTemplate `json:"template"`
	SetGroups []models.SetGroup      `json:"set_groups"`
}

func (h *handlers) getSetGroups(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid := UserIDFromContext(ctx)

	var templates []models.WorkoutTemplate
	if idStr := req.GetString("template_id", ""); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return mcp.NewToolResultError("invalid template ID: " + err.Error()), nil
		}
		all, err := h.ds.ListTemplates(ctx, uid)
		if err != nil {
			h.log.Error("mcp get_set_groups", "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		for _, t := range all {
			if t.ID == id {
				templates = append(templates, t)
			}
		}
		if len(templates) == 0 {
			return mcp.NewToolResultError("template not found"), nil
		}
	} else {
		all, err := h.ds.ListTemplates(ctx, uid)
		if err != nil {
			h.log.Error("mcp get_set_groups", "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		templates = all
	}

	out := make([]templateWithGroups, 0, len(templates))
	for _, t := range templates {
		groups, err := h.ds.ListSetGroups(ctx, t.ID, uid)
		if err != nil {
			h.log.Error("mcp get_set_groups", "template_id", t.ID, "error", err)
			return mcp.NewToolResultError("query failed: " + err.Error()), nil
		}
		out = append(out, templateWithGroups{Template: t, SetGroups: groups})
	}

	result, err := mcp.NewToolResultJSON(out)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var start, end time.Time
	var err error

	if s := req.GetString("start", ""); s != "" {
		start, err = parseFlexTime(s)
		if err != nil {
			return mcp.NewToolResultError("invalid start date: " + err.Error()), nil
		}
	} else {
		now := time.Now()
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	if s := req.GetString("end", ""); s != "" {
		end, err = parseFlexTime(s)
		if err != nil {
			return mcp.NewToolResultError("invalid end date: " + err.Error()), nil
		}
	} else {
		end = start.AddDate(0, 0, 14)
	}

	uid := UserIDFromContext(ctx)
	occurrences, err := h.ds.UpcomingOccurrences(ctx, start, end, uid)
	if err != nil {
		h.log.Error("mcp get_schedule", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(occurrences)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

// periodTotals sums interval summaries across all buckets of one period.
type periodTotals struct {
	Sessions       int     `json:"sessions"`
	Completed      int     `json:"completed"`
	RoundsRecorded int     `json:"rounds_recorded"`
	TotalWorkSec   int     `json:"total_work_sec"`
	CompletionRate float64 `json:"completion_rate"`
}

func sumPeriods(periods []storage.TrainingSummaryPeriod) periodTotals {
	var t periodTotals
	for _, p := range periods {
		if p.Intervals == nil {
			continue
		}
		t.Sessions += p.Intervals.Sessions
		t.Completed += p.Intervals.Completed
		t.RoundsRecorded += p.Intervals.RoundsRecorded
		t.TotalWorkSec += p.Intervals.TotalWorkSec
	}
	if t.Sessions > 0 {
		t.CompletionRate = float64(t.Completed) / float64(t.Sessions)
	}
	return t
}

func (h *handlers) comparePeriods(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	aStartStr, err := req.RequireString("period_a_start")
	if err != nil {
		return mcp.NewToolResultError("period_a_start is required"), nil
	}
	aEndStr, err := req.RequireString("period_a_end")
	if err != nil {
		return mcp.NewToolResultError("period_a_end is required"), nil
	}
	bStartStr, err := req.RequireString("period_b_start")
	if err != nil {
		return mcp.NewToolResultError("period_b_start is required"), nil
	}
	bEndStr, err := req.RequireString("period_b_end")
	if err != nil {
		return mcp.NewToolResultError("period_b_end is required"), nil
	}

	aStart, err := parseFlexTime(aStartStr)
	if err != nil {
		return mcp.NewToolResultError("invalid period_a_start: " + err.Error()), nil
	}
	aEnd, err := parseFlexTime(aEndStr)
	if err != nil {
		return mcp.NewToolResultError("invalid period_a_end: " + err.Error()), nil
	}
	bStart, err := parseFlexTime(bStartStr)
	if err != nil {
		return mcp.NewToolResultError("invalid period_b_start: " + err.Error()), nil
	}
	bEnd, err := parseFlexTime(bEndStr)
	if err != nil {
		return mcp.NewToolResultError("invalid period_b_end: " + err.Error()), nil
	}

	uid := UserIDFromContext(ctx)

	periodsA, err := h.ds.GetTrainingSummary(ctx, aStart, aEnd, "1 month", uid)
	if err != nil {
		h.log.Error("mcp compare_periods A", "error", err)
		return mcp.NewToolResultError("query failed for period A: " + err.Error()), nil
	}

	periodsB, err := h.ds.GetTrainingSummary(ctx, bStart, bEnd, "1 month", uid)
	if err != nil {
		h.log.Error("mcp compare_periods B", "error", err)
		return mcp.NewToolResultError("query failed for period B: " + err.Error()), nil
	}

	totalsA := sumPeriods(periodsA)
	totalsB := sumPeriods(periodsB)

	result, err := mcp.NewToolResultJSON(map[string]any{
		"period_a":            totalsA,
		"period_b":            totalsB,
		"work_sec_delta":      totalsA.TotalWorkSec - totalsB.TotalWorkSec,
		"session_count_delta": totalsA.Sessions - totalsB.Sessions,
	})
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
