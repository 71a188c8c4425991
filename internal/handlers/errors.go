package handlers

import (
	"errors"
	"log"
	"net/http"

	"sahay/internal/services"

	"github.com/gin-gonic/gin"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{services.ErrInvalidInput, http.StatusBadRequest},
	{services.ErrInvalidRating, http.StatusBadRequest},
	{services.ErrEmptyMessage, http.StatusBadRequest},
	{services.ErrMessageTooLong, http.StatusBadRequest},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrNotParticipant, http.StatusForbidden},
	{services.ErrQuizDisabled, http.StatusForbidden},
	{services.ErrProfileNotFound, http.StatusNotFound},
	{services.ErrSessionNotFound, http.StatusNotFound},
	{services.ErrQuizNotFound, http.StatusNotFound},
	{services.ErrNotFound, http.StatusNotFound},
	{services.ErrEmailTaken, http.StatusConflict},
	{services.ErrInvalidTransition, http.StatusConflict},
	{services.ErrCandidateUnavailable, http.StatusConflict},
	{services.ErrDuplicateRating, http.StatusConflict},
	{services.ErrQuizAnswered, http.StatusConflict},
	{services.ErrProfileIncomplete, http.StatusUnprocessableEntity},
	{services.ErrRatingRequired, http.StatusPreconditionRequired},
	{services.ErrAIUnavailable, http.StatusServiceUnavailable},
}

// writeError переводит ошибку сервиса в HTTP ответ; неизвестные ошибки скрываются за 500
func writeError(c *gin.Context, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			c.JSON(e.status, gin.H{"error": err.Error()})
			return
		}
	}
	log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}
