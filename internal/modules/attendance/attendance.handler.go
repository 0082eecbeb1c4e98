package attendance

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hrcore/attendance-engine/internal/shared/errors"
	"github.com/hrcore/attendance-engine/internal/shared/utils"
	"github.com/hrcore/attendance-engine/internal/shared/validator"
)

// ScheduleIntrospector exposes the next fire time per registered job.
type ScheduleIntrospector interface {
	NextRuns() map[string]time.Time
}

// Handler handles HTTP requests for attendance automation
type Handler struct {
	service   *Service
	scheduler ScheduleIntrospector
}

// NewHandler creates a new attendance handler. scheduler may be nil when
// the in-process scheduler is disabled; trigger status then omits next runs.
func NewHandler(service *Service, scheduler ScheduleIntrospector) *Handler {
	return &Handler{service: service, scheduler: scheduler}
}

// actorID reads the acting HR user from the X-Actor-ID header. Requests
// without one are attributed to the system actor.
func actorID(c *gin.Context) uint64 {
	raw := c.GetHeader("X-Actor-ID")
	if raw == "" {
		return SystemActorID
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return SystemActorID
	}
	return id
}

// TriggerAutoCheckout runs the auto-checkout sweep immediately.
func (h *Handler) TriggerAutoCheckout(c *gin.Context) {
	summary := h.service.RunAutoCheckout(c.Request.Context())
	utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobAutoCheckout, Summary: summary})
}

// TriggerAutoMarkAbsent runs the auto-mark-absent sweep. Without a date it
// applies the normal shift-deadline filter; with ?date=YYYY-MM-DD it replays
// that date unfiltered so a missed run can be backfilled.
func (h *Handler) TriggerAutoMarkAbsent(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		summary := h.service.RunAutoMarkAbsent(c.Request.Context())
		utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobAutoMarkAbsent, Summary: summary})
		return
	}

	date, err := time.ParseInLocation("2006-01-02", raw, h.service.Location())
	if err != nil {
		utils.Error(c, ValidationError("date", "Date must be in YYYY-MM-DD format"))
		return
	}
	summary := h.service.RunAutoMarkAbsentForDate(c.Request.Context(), date)
	utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobAutoMarkAbsent, Summary: summary})
}

// TriggerHolidayScan runs the holiday scan. Without a date it scans today
// with the normal grace filter; with ?date=YYYY-MM-DD it replays that date
// unfiltered so a missed scan can be backfilled.
func (h *Handler) TriggerHolidayScan(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		summary := h.service.RunHolidayScan(c.Request.Context())
		utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobHolidayScan, Summary: summary})
		return
	}

	date, err := time.ParseInLocation("2006-01-02", raw, h.service.Location())
	if err != nil {
		utils.Error(c, ValidationError("date", "Date must be in YYYY-MM-DD format"))
		return
	}
	summary := h.service.RunHolidayScanForDate(c.Request.Context(), date)
	utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobHolidayScan, Summary: summary})
}

// TriggerWeekendPresence runs the weekend presence job. ?force=true bypasses
// the weekend and grace checks for manual backfill.
func (h *Handler) TriggerWeekendPresence(c *gin.Context) {
	var summary RunSummary
	if c.Query("force") == "true" {
		summary = h.service.RunWeekendPresenceForced(c.Request.Context())
	} else {
		summary = h.service.RunWeekendPresence(c.Request.Context())
	}
	utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobWeekendPresence, Summary: summary})
}

// TriggerLeaveReset runs the annual leave reset immediately.
func (h *Handler) TriggerLeaveReset(c *gin.Context) {
	summary := h.service.RunAnnualLeaveReset(c.Request.Context())
	utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobAnnualLeaveReset, Summary: summary})
}

// TriggerLeaveAccrual runs the quarterly leave accrual immediately.
func (h *Handler) TriggerLeaveAccrual(c *gin.Context) {
	summary := h.service.RunQuarterlyLeaveAccrual(c.Request.Context())
	utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobQuarterlyLeaveAccrual, Summary: summary})
}

// TriggerMonthlyLeaveAccrual runs the monthly leave accrual immediately.
func (h *Handler) TriggerMonthlyLeaveAccrual(c *gin.Context) {
	summary := h.service.RunMonthlyLeaveAccrual(c.Request.Context())
	utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobMonthlyLeaveAccrual, Summary: summary})
}

// TriggerLatesReset runs the monthly lates reset immediately.
func (h *Handler) TriggerLatesReset(c *gin.Context) {
	summary := h.service.RunMonthlyLatesReset(c.Request.Context())
	utils.Success(c, http.StatusOK, TriggerRunResponse{Job: JobMonthlyLatesReset, Summary: summary})
}

// GetTriggerStatus reports today's date, timezone, roster size, holiday
// state and the next scheduled fire times.
func (h *Handler) GetTriggerStatus(c *gin.Context) {
	status, err := h.service.GetTriggerStatus(c.Request.Context())
	if err != nil {
		utils.Error(c, err)
		return
	}
	if h.scheduler != nil {
		status.NextRuns = h.scheduler.NextRuns()
	}
	utils.Success(c, http.StatusOK, status)
}

// GetWeekendStatus reports whether the weekend job would act right now.
func (h *Handler) GetWeekendStatus(c *gin.Context) {
	status, err := h.service.GetWeekendStatus(c.Request.Context())
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, http.StatusOK, status)
}

// CreateHoliday registers a holiday; past or current dates trigger an
// immediate attendance adjustment.
func (h *Handler) CreateHoliday(c *gin.Context) {
	var req CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, errors.Wrap(err, errors.ErrCodeBadRequest, "Invalid request body"))
		return
	}

	if err := h.service.validator.Validate(req); err != nil {
		validationErrors := validator.TranslateValidationErrors(err)
		utils.Error(c, errors.WithDetails(errors.ErrCodeValidation, "Validation failed", validationErrors))
		return
	}

	resp, err := h.service.CreateHoliday(c.Request.Context(), actorID(c), req)
	if err != nil {
		utils.Error(c, err)
		return
	}

	utils.Success(c, http.StatusCreated, resp)
}

// ListHolidays returns holidays, optionally filtered by ?year= and ?month=.
func (h *Handler) ListHolidays(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))
	if month < 0 || month > 12 {
		utils.Error(c, ValidationError("month", "Month must be between 1 and 12"))
		return
	}

	holidays, err := h.service.ListHolidays(c.Request.Context(), year, month)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, http.StatusOK, holidays)
}

// ListUpcomingHolidays returns the next holidays from today onward.
func (h *Handler) ListUpcomingHolidays(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	holidays, err := h.service.ListUpcomingHolidays(c.Request.Context(), limit)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, http.StatusOK, holidays)
}

// CheckHoliday answers whether ?date=YYYY-MM-DD (default today) is a holiday.
func (h *Handler) CheckHoliday(c *gin.Context) {
	raw := c.Query("date")
	date := h.service.businessToday()
	if raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, h.service.Location())
		if err != nil {
			utils.Error(c, ValidationError("date", "Date must be in YYYY-MM-DD format"))
			return
		}
		date = parsed
	}

	resp, err := h.service.IsHoliday(c.Request.Context(), date)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, http.StatusOK, resp)
}

// GetHolidayStats aggregates holiday counts for ?year= (default this year).
func (h *Handler) GetHolidayStats(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	stats, err := h.service.GetHolidayStats(c.Request.Context(), year)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, http.StatusOK, stats)
}

// GetHoliday returns one holiday by id.
func (h *Handler) GetHoliday(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.Error(c, ValidationError("id", "Holiday id must be a positive integer"))
		return
	}

	holiday, err := h.service.GetHoliday(c.Request.Context(), id)
	if err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, http.StatusOK, holiday)
}

// DeleteHoliday removes a future holiday, subject to the deletion rules.
func (h *Handler) DeleteHoliday(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		utils.Error(c, ValidationError("id", "Holiday id must be a positive integer"))
		return
	}

	if err := h.service.DeleteHoliday(c.Request.Context(), actorID(c), id); err != nil {
		utils.Error(c, err)
		return
	}
	utils.Success(c, http.StatusOK, gin.H{"deleted": true})
}
