package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/glowface/pointgate/internal/config"
	consumptiondomain "github.com/glowface/pointgate/internal/consumption/domain"
	"go.uber.org/zap"
)

const actionImageEdit = "image_edit"

type generateRequest struct {
	Prompts         []string `json:"prompts" binding:"required,min=1,max=10"`
	UserImageBase64 string   `json:"userImageBase64" binding:"required"`
}

// generate runs the metered batch flow: points are debited per the
// configured policy before or between upstream calls, and upstream
// failures are logged without a refund.
func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errBadRequest)
		return
	}

	ctx := c.Request.Context()
	deviceID := c.GetString(deviceIDKey)
	unit := s.cfg.CostPerImage
	total := unit * int64(len(req.Prompts))

	if s.cfg.DebitPolicy == config.DebitPolicyUpfront {
		_, err := s.consumptions.Consume(ctx, consumptiondomain.ConsumeRequest{
			DeviceID: deviceID,
			Action:   actionImageEdit,
			Cost:     total,
			Context:  map[string]interface{}{"prompt_count": len(req.Prompts)},
		})
		if err != nil {
			respondError(c, err)
			return
		}
	} else if err := s.consumptions.EnsureBalance(ctx, deviceID, total); err != nil {
		respondError(c, err)
		return
	}

	var images []string
	for i, prompt := range req.Prompts {
		url, err := s.generateOne(c, deviceID, prompt, req.UserImageBase64, unit)
		if err != nil {
			s.log.Warn("image generation failed",
				zap.String("device_id", deviceID),
				zap.Int("prompt_index", i),
				zap.Error(err),
			)
			continue
		}
		images = append(images, url)
	}

	acct, err := s.accounts.Get(ctx, deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"images":          images,
		"failed":          len(req.Prompts) - len(images),
		"remainingPoints": acct.Balance,
	})
}

func (s *Server) generateOne(c *gin.Context, deviceID, prompt, imageBase64 string, unit int64) (string, error) {
	ctx := c.Request.Context()

	dataURL, err := s.generator.EditImage(ctx, prompt, imageBase64)
	if err != nil {
		s.recordGenerateFailure(c, deviceID, prompt, err)
		return "", err
	}

	url, err := s.images.Save(deviceID, dataURL)
	if err != nil {
		s.recordGenerateFailure(c, deviceID, prompt, err)
		return "", err
	}

	if s.cfg.DebitPolicy == config.DebitPolicyPerItem {
		if _, err := s.consumptions.Consume(ctx, consumptiondomain.ConsumeRequest{
			DeviceID: deviceID,
			Action:   actionImageEdit,
			Cost:     unit,
			Context:  map[string]interface{}{"prompt": prompt},
		}); err != nil {
			return "", err
		}
	}
	return url, nil
}

func (s *Server) recordGenerateFailure(c *gin.Context, deviceID, prompt string, cause error) {
	err := s.consumptions.RecordFailure(c.Request.Context(), deviceID, actionImageEdit, 0, map[string]interface{}{
		"prompt": prompt,
		"error":  cause.Error(),
	})
	if err != nil {
		s.log.Error("usage log append failed", zap.Error(err))
	}
}
