package handler

import (
	"Signalforge/internal/api/dto"
	"Signalforge/internal/api/middleware"
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/mongo"
	"Signalforge/internal/pkg/response"
	"Signalforge/internal/pkg/util"
	"Signalforge/internal/service"
	"context"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
)

// AuditReader 审计日志查询，未配置 MongoDB 时为 nil
type AuditReader interface {
	List(ctx context.Context, filter mongo.AuditFilter) ([]*model.AuditLog, error)
}

type ContentHandler struct {
	ingestSvc    service.IngestService
	analyticsSvc service.AnalyticsService
	audit        AuditReader
	lookbackDays int
}

func NewContentHandler(ingestSvc service.IngestService, analyticsSvc service.AnalyticsService, audit AuditReader, lookbackDays int) *ContentHandler {
	return &ContentHandler{ingestSvc: ingestSvc, analyticsSvc: analyticsSvc, audit: audit, lookbackDays: defaultDays(lookbackDays)}
}

func (s *ContentHandler) ListSources(c *gin.Context) {
	sources, err := s.ingestSvc.ListSources(c.Request.Context(), c.GetUint64(middleware.CtxWorkspaceID))
	if err != nil {
		response.Error(c, err)
		return
	}
	list := make([]*dto.SourceDTO, 0, len(sources))
	_ = copier.Copy(&list, &sources)
	response.Success(c, list)
}

func (s *ContentHandler) CreateSource(c *gin.Context) {
	var req dto.CreateSourceDTO
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	source := &model.Source{
		WorkspaceID: c.GetUint64(middleware.CtxWorkspaceID),
		AccountID:   req.AccountID,
		Type:        req.Type,
		URL:         req.URL,
		IsEnabled:   req.IsEnabled == nil || *req.IsEnabled,
	}
	if err := s.ingestSvc.CreateSource(c.Request.Context(), source); err != nil {
		response.Error(c, err)
		return
	}
	item := &dto.SourceDTO{}
	_ = copier.Copy(item, source)
	response.Success(c, item)
}

func (s *ContentHandler) ListIdeas(c *gin.Context) {
	query, ok := bindList(c)
	if !ok {
		return
	}
	ideas, err := s.analyticsSvc.ListIdeas(c.Request.Context(), c.GetUint64(middleware.CtxWorkspaceID), query.Status, query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	list := make([]*dto.IdeaDTO, 0, len(ideas))
	_ = copier.Copy(&list, &ideas)
	response.Success(c, list)
}

func (s *ContentHandler) ListDrafts(c *gin.Context) {
	query, ok := bindList(c)
	if !ok {
		return
	}
	drafts, err := s.analyticsSvc.ListDrafts(c.Request.Context(), c.GetUint64(middleware.CtxWorkspaceID), query.Status, query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	list := make([]*dto.DraftDTO, 0, len(drafts))
	_ = copier.Copy(&list, &drafts)
	response.Success(c, list)
}

func (s *ContentHandler) ListPosts(c *gin.Context) {
	query, ok := bindList(c)
	if !ok {
		return
	}
	posts, err := s.analyticsSvc.ListPosts(c.Request.Context(), c.GetUint64(middleware.CtxWorkspaceID), query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	list := make([]*dto.PostDTO, 0, len(posts))
	_ = copier.Copy(&list, &posts)
	response.Success(c, list)
}

// Summary 工作区近 days 天指标合计
func (s *ContentHandler) Summary(c *gin.Context) {
	var query dto.RangeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&query); err != nil {
		response.Error(c, err)
		return
	}
	days := query.Days
	if days == 0 {
		days = s.lookbackDays
	}
	summary, err := s.analyticsSvc.SummaryForRange(c.Request.Context(), c.GetUint64(middleware.CtxWorkspaceID), days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, summary)
}

func (s *ContentHandler) ListAudit(c *gin.Context) {
	var query dto.AuditQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&query); err != nil {
		response.Error(c, err)
		return
	}
	if s.audit == nil {
		response.Success(c, []*model.AuditLog{})
		return
	}
	logs, err := s.audit.List(c.Request.Context(), mongo.AuditFilter{
		WorkspaceID: c.GetUint64(middleware.CtxWorkspaceID),
		AccountID:   query.AccountID,
		EventType:   query.EventType,
		Limit:       query.Limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, logs)
}

func bindList(c *gin.Context) (*dto.ListQuery, bool) {
	var query dto.ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, err)
		return nil, false
	}
	if err := util.ValidateDTO(&query); err != nil {
		response.Error(c, err)
		return nil, false
	}
	return &query, true
}
