package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// BodyLimit returns middleware that rejects request bodies larger than
// maxMB megabytes with HTTP 413. Document uploads are the only large
// payloads this service accepts, so one limit covers every route.
func BodyLimit(maxMB int) echo.MiddlewareFunc {
	limit := int64(maxMB) << 20

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}
			if req.ContentLength > limit {
				return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body exceeds %d MB limit", maxMB))
			}
			req.Body = http.MaxBytesReader(c.Response(), req.Body, limit)
			return next(c)
		}
	}
}
