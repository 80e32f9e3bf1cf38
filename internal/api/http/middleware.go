package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// RegisterMiddlewares attaches global middlewares such as error handling and logging.
// The request logger sits outermost so it records the rendered status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
}

// ErrorHandler renders errors that escape the middleware chain, such as body size
// violations raised by fiber itself.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		return renderError(c, err, logger, metrics)
	}
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(fmt.Errorf("panic: %v", r))
			}
			if err != nil {
				err = renderError(c, err, logger, metrics)
			}
		}()
		return c.Next()
	}
}

func renderError(c *fiber.Ctx, err error, logger *zap.Logger, metrics *observability.Metrics) error {
	domainErr := toDomainError(err)
	route := c.Path()
	if r := c.Route(); r != nil && r.Path != "" {
		route = r.Path
	}
	metrics.RecordError(route, c.Method(), domainErr.Code)

	body := fiber.Map{
		"code":    domainErr.Code,
		"message": domainErr.Message,
	}
	if len(domainErr.Details) > 0 {
		body["details"] = domainErr.Details
	}
	if domainErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(domainErr))
	}
	return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": body})
}

// toDomainError also understands the *fiber.Error values raised by routing.
func toDomainError(err error) *apperrors.DomainError {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		switch fiberErr.Code {
		case http.StatusNotFound:
			return apperrors.NewDomainError("NOT_FOUND", "resource not found", http.StatusNotFound, nil)
		case http.StatusMethodNotAllowed:
			return apperrors.NewDomainError("METHOD_NOT_ALLOWED", fiberErr.Message, http.StatusMethodNotAllowed, nil)
		case http.StatusRequestTimeout:
			return apperrors.NewDomainError("TIMEOUT", fiberErr.Message, http.StatusRequestTimeout, nil)
		}
		if fiberErr.Code < http.StatusInternalServerError {
			return apperrors.NewDomainError("BAD_REQUEST", fiberErr.Message, fiberErr.Code, nil)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewDomainError("TIMEOUT", "request timed out", http.StatusServiceUnavailable, nil)
	}
	return apperrors.ToDomainError(err)
}
