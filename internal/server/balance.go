package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) balance(c *gin.Context) {
	deviceID := c.GetString(deviceIDKey)

	acct, err := s.accounts.Get(c.Request.Context(), deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deviceId":      acct.DeviceID,
		"balance":       acct.Balance,
		"totalConsumed": acct.TotalConsumed,
	})
}
