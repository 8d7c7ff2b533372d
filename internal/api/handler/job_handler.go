package handler

import (
	"Signalforge/internal/api/dto"
	"Signalforge/internal/job"
	"Signalforge/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	registry *job.Registry
}

func NewJobHandler(registry *job.Registry) *JobHandler {
	return &JobHandler{registry: registry}
}

// ListJobs 任务名、运行状态与最近一次结果
func (s *JobHandler) ListJobs(c *gin.Context) {
	jobs := s.registry.Jobs()
	list := make([]*dto.JobDTO, 0, len(jobs))
	for _, j := range jobs {
		item := &dto.JobDTO{Name: j.Name(), Running: j.Running()}
		if last := j.Last(); last != nil {
			item.Last = last
		}
		list = append(list, item)
	}
	response.Success(c, list)
}

// RunJob 同步执行任务，忙碌时带回 busy 摘要
func (s *JobHandler) RunJob(c *gin.Context) {
	summary, err := s.registry.Run(c.Request.Context(), c.Param("name"))
	if job.IsBusy(err) {
		response.FailWithData(c, response.Conflict, err.Error(), summary)
		return
	}
	if err != nil && summary == nil {
		response.Error(c, err)
		return
	}
	// 任务失败时摘要里已有 error 与部分计数
	response.Success(c, summary)
}
