package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"ticketing_app_echo/internal/services"
	"ticketing_app_echo/internal/templates"
)

// ErrorBody is the JSON error envelope returned by the API
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// StatusFor maps a checkout error code to its HTTP status
func StatusFor(code services.ErrorCode) int {
	switch code {
	case services.CodeValidation, services.CodeQuantityOutOfRange:
		return http.StatusBadRequest
	case services.CodePriceMismatch:
		return http.StatusUnprocessableEntity
	case services.CodeOrderNotFound, services.CodeEventNotFound:
		return http.StatusNotFound
	case services.CodeSoldOut, services.CodeInvalidState, services.CodeAmountMismatch:
		return http.StatusConflict
	case services.CodeInvalidSignature:
		return http.StatusUnauthorized
	case services.CodeGatewayUnavailable, services.CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// CustomErrorHandler creates a custom error handler for Echo. API routes get
// the JSON envelope, the public /p/ pages get the HTML error page.
func CustomErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, detail := describe(err)

		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", code),
				zap.Error(err))
		} else {
			log.Debug("request rejected",
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", code),
				zap.Error(err))
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}

		if strings.HasPrefix(c.Request().URL.Path, "/p/") {
			renderErrorPage(c, code, detail.Message, log)
			return
		}

		if jsonErr := c.JSON(code, ErrorBody{Error: detail}); jsonErr != nil {
			log.Error("failed to write error response", zap.Error(jsonErr))
		}
	}
}

func describe(err error) (int, ErrorDetail) {
	var ce *services.CheckoutError
	if errors.As(err, &ce) {
		return StatusFor(ce.Code), ErrorDetail{
			Code:      string(ce.Code),
			Message:   ce.Message,
			Retryable: ce.Retryable,
		}
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok && msg != "" {
			message = msg
		}
		return he.Code, ErrorDetail{Code: httpCode(he.Code), Message: message}
	}

	return http.StatusInternalServerError, ErrorDetail{
		Code:    "internal_error",
		Message: "Something went wrong. Please try again later.",
	}
}

func httpCode(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("http_%d", status)
	}
}

func renderErrorPage(c echo.Context, code int, message string, log *zap.Logger) {
	title := http.StatusText(code)
	if code == http.StatusNotFound {
		title = "Page Not Found"
	}
	if code >= http.StatusInternalServerError {
		message = "Something went wrong. Please try again later."
	}

	props := templates.ErrorPageProps{
		Title:        title,
		ErrorTitle:   title,
		ErrorMessage: message,
	}

	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	if renderErr := templates.PublicErrorPage(props).Render(c.Request().Context(), c.Response()); renderErr != nil {
		log.Error("failed to render error page", zap.Error(renderErr))
	}
}
