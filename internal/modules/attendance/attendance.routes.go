package attendance

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(router *gin.Engine, handler *Handler) {
	group := router.Group("/api/v1/attendance")

	// Manual job triggers and introspection
	triggers := group.Group("/triggers")
	{
		triggers.POST("/auto-checkout", handler.TriggerAutoCheckout)
		triggers.POST("/auto-mark-absent", handler.TriggerAutoMarkAbsent)
		triggers.POST("/holiday-scan", handler.TriggerHolidayScan)
		triggers.POST("/weekend-presence", handler.TriggerWeekendPresence)
		triggers.POST("/leaves/reset", handler.TriggerLeaveReset)
		triggers.POST("/leaves/accrue", handler.TriggerLeaveAccrual)
		triggers.POST("/leaves/accrue-monthly", handler.TriggerMonthlyLeaveAccrual)
		triggers.POST("/lates/reset", handler.TriggerLatesReset)
		triggers.GET("/status", handler.GetTriggerStatus)
		triggers.GET("/weekend-status", handler.GetWeekendStatus)
	}

	// Holiday calendar
	holidays := group.Group("/holidays")
	{
		holidays.POST("", handler.CreateHoliday)
		holidays.GET("", handler.ListHolidays)
		holidays.GET("/upcoming", handler.ListUpcomingHolidays)
		holidays.GET("/check", handler.CheckHoliday)
		holidays.GET("/stats", handler.GetHolidayStats)
		holidays.GET("/:id", handler.GetHoliday)
		holidays.DELETE("/:id", handler.DeleteHoliday)
	}
}
