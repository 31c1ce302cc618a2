package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	codedomain "github.com/glowface/pointgate/internal/code/domain"
)

func (s *Server) mintCodes(c *gin.Context) {
	var req codedomain.MintBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadRequest)
		return
	}

	batch, err := s.codes.MintBatch(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"batchId": batch.BatchID,
		"codes":   toCodeViews(batch.Codes),
	})
}

func (s *Server) listCodes(c *gin.Context) {
	var req codedomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondError(c, errBadRequest)
		return
	}

	rows, err := s.codes.List(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"codes": toCodeViews(rows)})
}

func (s *Server) getCode(c *gin.Context) {
	row, err := s.codes.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toCodeView(*row))
}

type codeView struct {
	Code       string            `json:"code"`
	Kind       codedomain.Kind   `json:"kind"`
	PointValue int64             `json:"pointValue"`
	UsageCap   int               `json:"usageCap"`
	UsageCount int               `json:"usageCount"`
	Status     codedomain.Status `json:"status"`
	BatchID    string            `json:"batchId"`
}

func toCodeView(row codedomain.Code) codeView {
	return codeView{
		Code:       row.Code,
		Kind:       row.Kind,
		PointValue: row.PointValue,
		UsageCap:   row.UsageCap,
		UsageCount: row.UsageCount,
		Status:     row.Status,
		BatchID:    row.BatchID,
	}
}

func toCodeViews(rows []codedomain.Code) []codeView {
	views := make([]codeView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toCodeView(row))
	}
	return views
}
