package httpserver

import (
	webecho "github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// newRouter creates a configured Echo server instance.
func newRouter() *webecho.Echo {
	e := webecho.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	return e
}
