package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type activateRequest struct {
	Code     string `json:"code" binding:"required"`
	DeviceID string `json:"deviceId" binding:"required"`
}

func (s *Server) activate(c *gin.Context) {
	var req activateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadRequest)
		return
	}

	res, err := s.redemptions.Redeem(c.Request.Context(), req.Code, req.DeviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Set(deviceIDKey, res.DeviceID)
	c.JSON(http.StatusOK, gin.H{
		"token": res.Token,
		"user": gin.H{
			"deviceId": res.DeviceID,
			"balance":  res.Balance,
		},
		"replayed": res.Replayed,
	})
}
