package api

import (
	"errors"
	"net/http"

	"peermatch-service/internal/service/match"
	appErr "peermatch-service/pkg/errors"
	"peermatch-service/pkg/logger"
	"peermatch-service/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type joinRequest struct {
	UserID     string   `json:"userId" binding:"required"`
	Username   string   `json:"username"`
	Topics     []string `json:"topics" binding:"required,min=1,max=5,dive,required"`
	Difficulty string   `json:"difficulty" binding:"required,oneof=easy medium hard"`
}

type leaveRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type disconnectRequest struct {
	MatchID         string `json:"matchId" binding:"required"`
	RemainingUserID string `json:"remainingUserId" binding:"required"`
	Action          string `json:"action" binding:"required"`
}

func (h *Handler) JoinQueue(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Match.Join(c.Request.Context(), match.JoinRequest{
		UserID:     req.UserID,
		Username:   req.Username,
		Topics:     req.Topics,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		logger.Log.Error("join failed", zap.String("userID", req.UserID), zap.Error(err))
		response.Internal(c)
		return
	}
	response.Success(c, result)
}

func (h *Handler) LeaveQueue(c *gin.Context) {
	var req leaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Match.Leave(c.Request.Context(), req.UserID)
	if err != nil {
		logger.Log.Error("leave failed", zap.String("userID", req.UserID), zap.Error(err))
		response.Internal(c)
		return
	}
	response.Success(c, result)
}

func (h *Handler) GetStatus(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		response.Error(c, http.StatusBadRequest, "missing userId")
		return
	}

	result, err := h.services.Match.GetStatus(c.Request.Context(), userID)
	if err != nil {
		logger.Log.Error("status failed", zap.String("userID", userID), zap.Error(err))
		response.Internal(c)
		return
	}
	if result.Status == match.StatusNotFound {
		c.JSON(http.StatusNotFound, result)
		return
	}
	response.Success(c, result)
}

func (h *Handler) HandleDisconnect(c *gin.Context) {
	var req disconnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.Match.HandleDisconnect(c.Request.Context(), match.DisconnectRequest{
		MatchID:         req.MatchID,
		RemainingUserID: req.RemainingUserID,
		Action:          req.Action,
	})
	if err != nil {
		switch {
		case errors.Is(err, appErr.ErrMatchNotActive):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "MATCH_NOT_ACTIVE"})
		case errors.Is(err, appErr.ErrInvalidAction):
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "INVALID_ACTION"})
		default:
			logger.Log.Error("disconnect failed", zap.String("matchID", req.MatchID), zap.Error(err))
			response.Internal(c)
		}
		return
	}
	response.Success(c, result)
}
