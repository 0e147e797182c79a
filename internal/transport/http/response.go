package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"quizroom-service/internal/domain"
)

// Body is the uniform response envelope shared by every endpoint.
type Body struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	Error     any    `json:"error,omitempty"`
	Timestamp string `json:"timestamp"`
}

func envelope(success bool, message string, data any) Body {
	return Body{
		Success:   success,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// OK sends a 200 with data.
func OK(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, envelope(true, message, data))
}

// Created sends a 201 with data.
func Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, envelope(true, message, data))
}

// Fail sends a failure envelope with the mapped status for err. Unexpected
// faults get a generic message; the detail belongs in the server log.
func Fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	FailMsg(c, status, msg)
}

// FailMsg sends a failure envelope with an explicit status and message.
func FailMsg(c *gin.Context, status int, message string) {
	c.JSON(status, envelope(false, message, nil))
}

// statusFor maps the domain error taxonomy onto HTTP statuses: validation
// and state conflicts 400, authority 403, missing resources 404, anything
// unexpected 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrParticipantNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAdmin):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidUsername),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrInvalidAnswer),
		errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrQuizAlreadyStarted),
		errors.Is(err, domain.ErrQuizNotActive),
		errors.Is(err, domain.ErrQuizActive),
		errors.Is(err, domain.ErrNoQuestions),
		errors.Is(err, domain.ErrNoParticipants),
		errors.Is(err, domain.ErrNoActiveQuestion),
		errors.Is(err, domain.ErrAlreadyAnswered),
		errors.Is(err, domain.ErrRoomFull):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
