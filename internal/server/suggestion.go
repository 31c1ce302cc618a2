package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type suggestionRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// aiSuggestion proxies a free-of-charge text prompt for an authenticated
// device. No points move here.
func (s *Server) aiSuggestion(c *gin.Context) {
	var req suggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadRequest)
		return
	}

	text, err := s.generator.SuggestText(c.Request.Context(), req.Prompt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}
