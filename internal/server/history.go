package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	consumptiondomain "github.com/glowface/pointgate/internal/consumption/domain"
)

type historyItem struct {
	Action    string                 `json:"action"`
	Cost      int64                  `json:"cost"`
	Outcome   string                 `json:"outcome"`
	Context   map[string]interface{} `json:"context,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

func (s *Server) history(c *gin.Context) {
	deviceID := c.GetString(deviceIDKey)
	limit, _ := strconv.Atoi(c.Query("limit"))

	rows, err := s.consumptions.History(c.Request.Context(), deviceID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]historyItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toHistoryItem(row))
	}
	c.JSON(http.StatusOK, gin.H{"history": items})
}

func toHistoryItem(row consumptiondomain.UsageLog) historyItem {
	return historyItem{
		Action:    row.Action,
		Cost:      row.Cost,
		Outcome:   row.Outcome,
		Context:   row.Context,
		CreatedAt: row.CreatedAt,
	}
}
