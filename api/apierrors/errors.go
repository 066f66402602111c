package apierrors

import "net/http"

// AppError is an error carrying the HTTP status it should be rendered with.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

var (
	ErrInvalidRequest       = NewAppError(http.StatusBadRequest, "Invalid request parameters")
	ErrUnauthorized         = NewAppError(http.StatusUnauthorized, "Unauthorized access")
	ErrNotFound             = NewAppError(http.StatusNotFound, "Resource not found")
	ErrInternalServer       = NewAppError(http.StatusInternalServerError, "Internal server error")
	ErrDisplayNameRequired  = NewAppError(http.StatusConflict, "Display name must be set before sending messages")
	ErrConfirmationRequired = NewAppError(http.StatusPreconditionRequired, "Deletion must be confirmed")
	ErrWriteConflict        = NewAppError(http.StatusConflict, "Concurrent update, please retry")
)

func BadRequest(msg string) *AppError {
	return NewAppError(http.StatusBadRequest, msg)
}

func NotFound(msg string) *AppError {
	return NewAppError(http.StatusNotFound, msg)
}

func Unauthorized(msg string) *AppError {
	return NewAppError(http.StatusUnauthorized, msg)
}
