package uploads

import "github.com/labstack/echo/v4"

type Handler interface {
	InitUpload() echo.HandlerFunc
	GetPartURL() echo.HandlerFunc
	GetBatchPartURLs() echo.HandlerFunc
	ListParts() echo.HandlerFunc
	ResumeUpload() echo.HandlerFunc
	CompleteUpload() echo.HandlerFunc
	AbortUpload() echo.HandlerFunc
}
