package videofiles

import "github.com/labstack/echo/v4"

type Handler interface {
	ImportVideo() echo.HandlerFunc
	GetVideoByID() echo.HandlerFunc
	ListVideos() echo.HandlerFunc
	Configure() echo.HandlerFunc
	GetDownloadURL() echo.HandlerFunc
	DeleteVideo() echo.HandlerFunc
}
