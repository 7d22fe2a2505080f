package clips

import "github.com/labstack/echo/v4"

type Handler interface {
	GetClip() echo.HandlerFunc
	ListClips() echo.HandlerFunc
	Generate() echo.HandlerFunc
	TriggerOperation() echo.HandlerFunc
	Export() echo.HandlerFunc
	ScheduleExports() echo.HandlerFunc
	RescheduleExport() echo.HandlerFunc
	CancelOperation() echo.HandlerFunc
}
