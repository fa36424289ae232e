package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Message string `json:"message" binding:"required"`
	UserID  string `json:"user_id" binding:"required"`
}

func (a *App) postChat(c *gin.Context) {
	var req chatRequest
	if !mustJSON(c, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(c, http.StatusBadRequest, "message and user_id must not be empty")
		return
	}

	result, err := a.chat.Reply(c.Request.Context(), req.UserID, req.Message)
	if err != nil {
		_ = c.Error(err)
		writeError(c, statusForError(err), err.Error())
		return
	}
	c.JSON(http.StatusOK, result)
}
