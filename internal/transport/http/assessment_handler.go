package http

import (
	"errors"
	"log"
	"net/http"

	"assessment-session/internal/app"
	"assessment-session/internal/domain"
	"github.com/gin-gonic/gin"
)

// AssessmentHandler serves the learner-facing assessment endpoints.
type AssessmentHandler struct {
	service *app.AssessmentService
}

func NewAssessmentHandler(service *app.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{service: service}
}

func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	a, err := h.service.FetchAssessment(c.Request.Context(), c.Query("user"), domain.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "assessment": a})
}

func (h *AssessmentHandler) SubmitAnswers(c *gin.Context) {
	var sub domain.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid request body"})
		return
	}
	report, err := h.service.SubmitAnswers(c.Request.Context(), sub)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "results": report})
}

func (h *AssessmentHandler) ListAttempts(c *gin.Context) {
	attempts, err := h.service.Attempts(c.Request.Context(), c.Query("user"), domain.ID(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "attempts": attempts})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUsernameRequired), errors.Is(err, domain.ErrAssessmentIDRequired):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrAssessmentNotFound), errors.Is(err, domain.ErrNoQuestions):
		status = http.StatusNotFound
	default:
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
