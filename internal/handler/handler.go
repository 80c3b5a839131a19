package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/oneany574/eduflow-calendar-hub/internal/attendance"
	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
	"github.com/oneany574/eduflow-calendar-hub/internal/session"
	"github.com/oneany574/eduflow-calendar-hub/internal/store"
	"github.com/oneany574/eduflow-calendar-hub/internal/validation"
)

// Checker reports the health of a dependency.
type Checker interface {
	Healthy(ctx context.Context) bool
}

// Dashboard reads the figures the worker derives from session events.
// Implemented by store.SummaryCache and worker.MemoryCache.
type Dashboard interface {
	GetSummary(ctx context.Context, sessionID string) (attendance.Summary, error)
	EventCounts(ctx context.Context) (map[string]int64, error)
}

type Handler struct {
	svc       *session.Service
	clock     calendar.Clock
	weekStart time.Weekday
	redis     Checker   // nil when redis is not used
	dashboard Dashboard // nil when events are discarded
	log       *zap.Logger
}

func New(svc *session.Service, clock calendar.Clock, weekStart time.Weekday, redis Checker, dashboard Dashboard, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, clock: clock, weekStart: weekStart, redis: redis, dashboard: dashboard, log: log}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/v1")
	v1.GET("/sessions", h.ListSessions)
	v1.POST("/sessions", h.CreateSession)
	v1.GET("/sessions/:id", h.GetSession)
	v1.PATCH("/sessions/:id", h.UpdateSession)
	v1.DELETE("/sessions/:id", h.DeleteSession)
	v1.POST("/sessions/:id/actions", h.Dispatch)
	v1.GET("/sessions/:id/attendance", h.GetAttendance)
	v1.PUT("/sessions/:id/attendance", h.SaveAttendance)
	v1.GET("/sessions/:id/attendance/summary", h.AttendanceSummary)
	v1.POST("/conflicts", h.CheckConflicts)
	v1.GET("/calendar", h.Calendar)
	v1.GET("/metrics/daily", h.DailyMetrics)
	v1.GET("/dashboard", h.Dashboard)
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	status := http.StatusOK
	if h.redis != nil {
		healthy := h.redis.Healthy(c.Request.Context())
		resp["redis"] = healthy
		if !healthy {
			resp["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}

// ---------- Sessions ----------

// ListSessions filters by class, section, status, module and search, and by
// date when given.
func (h *Handler) ListSessions(c *gin.Context) {
	var f session.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sessions := h.svc.List(f)
	if raw := c.Query("date"); raw != "" {
		d, err := calendar.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sessions = session.ForDate(sessions, d)
	}
	if sessions == nil {
		sessions = []session.Session{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req session.NewSession
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Add(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetSession(c *gin.Context) {
	s, err := h.svc.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *Handler) UpdateSession(c *gin.Context) {
	var req session.UpdateSession
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.svc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Dispatch runs a session card action: view, start, end, cancel, reschedule, edit or delete.
func (h *Handler) Dispatch(c *gin.Context) {
	var cmd session.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd.SessionID = c.Param("id")
	out, err := h.svc.Dispatch(c.Request.Context(), cmd)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// ---------- Conflicts ----------

func (h *Handler) CheckConflicts(c *gin.Context) {
	var req session.ConflictCheck
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cs, err := h.svc.CheckConflicts(req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conflicts": cs, "has_conflicts": len(cs) > 0})
}

// ---------- Calendar ----------

type day struct {
	Date     calendar.Date     `json:"date"`
	InMonth  bool              `json:"in_month"`
	Today    bool              `json:"today"`
	Selected bool              `json:"selected"`
	Sessions []session.Session `json:"sessions"`
}

// Calendar renders the days of a view with their sessions. Query: view
// (monthly|weekly|daily), date (anchor, default today), shift (views to move
// forward or back) plus the session filters.
func (h *Handler) Calendar(c *gin.Context) {
	view, err := calendar.ParseView(c.Query("view"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var f session.Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	nav := calendar.NewNavigator(h.clock, h.weekStart)
	if err := nav.SetView(view); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if raw := c.Query("date"); raw != "" {
		d, err := calendar.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		nav.Goto(d)
	}
	if raw := c.Query("shift"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "shift must be an integer"})
			return
		}
		for ; n > 0; n-- {
			nav.Next()
		}
		for ; n < 0; n++ {
			nav.Prev()
		}
	}

	byDate := session.GroupByDate(h.svc.List(f))
	dates := nav.Days()
	days := make([]day, len(dates))
	for i, d := range dates {
		ss := byDate[d]
		if ss == nil {
			ss = []session.Session{}
		}
		days[i] = day{
			Date:     d,
			InMonth:  nav.InMonth(d),
			Today:    nav.IsToday(d),
			Selected: nav.IsSelected(d),
			Sessions: ss,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"view":       nav.View(),
		"anchor":     nav.Anchor(),
		"week_start": nav.WeekStart().String(),
		"days":       days,
	})
}

// ---------- Attendance ----------

func (h *Handler) GetAttendance(c *gin.Context) {
	id := c.Param("id")
	records := h.svc.GetAttendance(id)
	c.JSON(http.StatusOK, gin.H{
		"session_id": id,
		"records":    records,
		"summary":    attendance.Summarize(records),
	})
}

type saveAttendanceRequest struct {
	Records []attendance.Record `json:"records"`
	MarkAll attendance.Status   `json:"mark_all"` // optional: overrides every record
}

func (h *Handler) SaveAttendance(c *gin.Context) {
	var req saveAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := c.Param("id")
	records := req.Records
	if req.MarkAll != "" {
		if !req.MarkAll.Valid() {
			h.fail(c, validation.NewValidationError(validation.FieldError{Field: "mark_all", Error: "mark_all must be one of [present absent late excused]"}))
			return
		}
		if records == nil {
			records = h.svc.GetAttendance(id)
		}
		records = attendance.MarkAll(records, req.MarkAll)
	}
	sum, err := h.svc.SaveAttendance(c.Request.Context(), id, records)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "records": records, "summary": sum})
}

func (h *Handler) AttendanceSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.AttendanceSummary(c.Param("id")))
}

// ---------- Metrics ----------

func (h *Handler) DailyMetrics(c *gin.Context) {
	d, ok := h.dateQuery(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.svc.DailyMetrics(d))
}

type dashboardSession struct {
	SessionID string              `json:"session_id"`
	Title     string              `json:"title"`
	Status    session.Status      `json:"status"`
	Summary   *attendance.Summary `json:"summary,omitempty"` // nil until the worker cached one
}

// Dashboard serves the day's metrics with the event counters and attendance
// summaries cached by the worker.
func (h *Handler) Dashboard(c *gin.Context) {
	if h.dashboard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard cache not configured"})
		return
	}
	d, ok := h.dateQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	counts, err := h.dashboard.EventCounts(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	held := session.ForDate(h.svc.List(session.Filter{}), d)
	sessions := make([]dashboardSession, 0, len(held))
	for _, s := range held {
		ds := dashboardSession{SessionID: s.ID, Title: s.Title, Status: s.Status}
		sum, err := h.dashboard.GetSummary(ctx, s.ID)
		switch {
		case err == nil:
			ds.Summary = &sum
		case !errors.Is(err, store.ErrMiss):
			h.fail(c, err)
			return
		}
		sessions = append(sessions, ds)
	}
	c.JSON(http.StatusOK, gin.H{
		"date":     d,
		"metrics":  h.svc.DailyMetrics(d),
		"events":   counts,
		"sessions": sessions,
	})
}

// dateQuery reads the date query parameter, defaulting to today. It writes a
// 400 and returns false when the date is malformed.
func (h *Handler) dateQuery(c *gin.Context) (calendar.Date, bool) {
	raw := c.Query("date")
	if raw == "" {
		return h.clock.Today(), true
	}
	d, err := calendar.ParseDate(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return calendar.Date{}, false
	}
	return d, true
}

// ---------- Errors ----------

func (h *Handler) fail(c *gin.Context, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Err.Error(), "fields": verr.Fields})
	case errors.Is(err, session.ErrInvalidInterval), errors.Is(err, session.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
