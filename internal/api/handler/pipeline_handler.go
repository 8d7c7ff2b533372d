package handler

import (
	"Signalforge/internal/api/dto"
	"Signalforge/internal/pkg/response"
	"Signalforge/internal/service"

	"github.com/gin-gonic/gin"
)

type PipelineHandler struct {
	publishSvc service.PublishService
}

func NewPipelineHandler(publishSvc service.PublishService) *PipelineHandler {
	return &PipelineHandler{publishSvc: publishSvc}
}

func (s *PipelineHandler) GetPosting(c *gin.Context) {
	disabled, err := s.publishSvc.PostingDisabled(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.PostingStateDTO{Disabled: disabled})
}

// SetPosting 切换全局停发开关
func (s *PipelineHandler) SetPosting(c *gin.Context) {
	var req dto.PostingSwitchDTO
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := s.publishSvc.SetPostingDisabled(ctx, *req.Disabled); err != nil {
		response.Error(c, err)
		return
	}
	disabled, err := s.publishSvc.PostingDisabled(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.PostingStateDTO{Disabled: disabled})
}
