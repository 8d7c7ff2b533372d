package handler

import (
	"Signalforge/internal/api/dto"
	"Signalforge/internal/api/middleware"
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/response"
	"Signalforge/internal/pkg/util"
	"Signalforge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
)

type AccountHandler struct {
	accountSvc    service.AccountService
	schedulingSvc service.SchedulingService
	analyticsSvc  service.AnalyticsService
	lookbackDays  int
}

func NewAccountHandler(accountSvc service.AccountService, schedulingSvc service.SchedulingService, analyticsSvc service.AnalyticsService, lookbackDays int) *AccountHandler {
	return &AccountHandler{
		accountSvc:    accountSvc,
		schedulingSvc: schedulingSvc,
		analyticsSvc:  analyticsSvc,
		lookbackDays:  defaultDays(lookbackDays),
	}
}

// defaultDays 未配置回看天数时取 7 天
func defaultDays(days int) int {
	if days <= 0 {
		return 7
	}
	return days
}

func (s *AccountHandler) ListAccounts(c *gin.Context) {
	accounts, err := s.accountSvc.ListAccounts(c.Request.Context(), c.GetUint64(middleware.CtxWorkspaceID))
	if err != nil {
		response.Error(c, err)
		return
	}
	list := make([]*dto.AccountDTO, 0, len(accounts))
	for _, a := range accounts {
		list = append(list, dto.NewAccountDTO(a))
	}
	response.Success(c, list)
}

func (s *AccountHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountDTO
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	account := &model.Account{
		WorkspaceID: c.GetUint64(middleware.CtxWorkspaceID),
		Handle:      req.Handle,
		Name:        req.Name,
		IsEnabled:   req.IsEnabled == nil || *req.IsEnabled,
	}
	if err := s.accountSvc.CreateAccount(c.Request.Context(), account, req.Settings.ToModel()); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewAccountDTO(account))
}

func (s *AccountHandler) UpdateAccount(c *gin.Context) {
	account, ok := s.loadAccount(c)
	if !ok {
		return
	}
	var req dto.UpdateAccountDTO
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&req); err != nil {
		response.Error(c, err)
		return
	}

	updated, err := s.accountSvc.UpdateAccount(c.Request.Context(), account.ID, &service.AccountUpdate{
		Name:      req.Name,
		Handle:    req.Handle,
		IsEnabled: req.IsEnabled,
		Settings:  req.Settings.ToModel(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.NewAccountDTO(updated))
}

// GetSchedule 账号某本地日的排期，date 缺省为今天
func (s *AccountHandler) GetSchedule(c *gin.Context) {
	account, ok := s.loadAccount(c)
	if !ok {
		return
	}
	var query dto.ScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, err)
		return
	}
	if err := util.ValidateDTO(&query); err != nil {
		response.Error(c, err)
		return
	}

	items, err := s.schedulingSvc.AccountSchedule(c.Request.Context(), account.ID, query.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	list := make([]*dto.ScheduleItemDTO, 0, len(items))
	_ = copier.Copy(&list, &items)
	response.Success(c, list)
}

// GetPerformance 账号近 days 天的模板表现
func (s *AccountHandler) GetPerformance(c *gin.Context) {
	account, ok := s.loadAccount(c)
	if !ok {
		return
	}
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

	perf, err := s.analyticsSvc.AccountPerformance(c.Request.Context(), account.ID, days)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, perf)
}

// loadAccount 校验路径中的账号属于当前工作区
func (s *AccountHandler) loadAccount(c *gin.Context) (*model.Account, bool) {
	accountID, err := util.ParseID(c.Param("account_id"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	account, err := s.accountSvc.GetAccount(c.Request.Context(), c.GetUint64(middleware.CtxWorkspaceID), accountID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return account, true
}
