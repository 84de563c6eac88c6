package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/faqbot/internal/domain/auth"
	"github.com/yanqian/faqbot/internal/domain/faq"
	apperrors "github.com/yanqian/faqbot/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// fromAppError maps a domain error code to a status; fallback names errors without a code.
func fromAppError(err error, fallback string) *HTTPError {
	code := apperrors.CodeOf(err)
	status := statusForCode(code)
	if code == "" {
		code = fallback
	}
	return NewHTTPError(status, code, apperrors.MessageOf(err), err)
}

func statusForCode(code string) int {
	switch code {
	case faq.CodeInvalidInput:
		return http.StatusBadRequest
	case auth.CodeInvalidCredentials:
		return http.StatusUnauthorized
	case auth.CodeInvalidToken:
		return http.StatusForbidden
	case faq.CodeStoreUnavailable, faq.CodeIndexUnavailable:
		return http.StatusServiceUnavailable
	case faq.CodeGenerativeUnreachable:
		return http.StatusBadGateway
	case faq.CodeGenerativeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}
