package http

import (
	"github.com/gin-gonic/gin"

	"github.com/tazhibayda/task-service/internal/apperr"
	"github.com/tazhibayda/task-service/internal/log"
	"go.uber.org/zap"
)

// envelope is the wire shape every response uses.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    gin.H  `json:"data,omitempty"`
}

func success(c *gin.Context, code int, message string, data gin.H) {
	c.JSON(code, envelope{Status: "success", Message: message, Data: data})
}

// fail maps a typed error onto the envelope. Internals log the cause
// and hide it from the client.
func fail(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status == 500 {
		log.WithDD(c.Request.Context(), log.L).Error("request failed",
			zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, envelope{Status: "error", Message: apperr.Message(err)})
}

func failWith(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, envelope{Status: "error", Message: message})
}
