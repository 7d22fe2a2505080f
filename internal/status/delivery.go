package status

import "github.com/labstack/echo/v4"

type Handler interface {
	GetVideoStatus() echo.HandlerFunc
	GetClipStatus() echo.HandlerFunc
	GetOperationStatus() echo.HandlerFunc
}
