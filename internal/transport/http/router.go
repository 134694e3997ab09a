package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter mounts the assessment API and the live session socket.
func NewRouter(assessments *AssessmentHandler, ws *WSHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	group := router.Group("/assessments")
	group.POST("/submit", assessments.SubmitAnswers)
	group.GET("/:id", assessments.GetAssessment)
	group.GET("/:id/attempts", assessments.ListAttempts)

	router.GET("/ws/session", ws.ServeWS)
	return router
}
