package job

import (
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/consts"
	"Signalforge/internal/pkg/logger"
	"Signalforge/internal/service"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Summary 单次任务执行的结果
type Summary struct {
	Job        string         `json:"job"`
	Status     string         `json:"status"`
	Counts     map[string]int `json:"counts"`
	Error      string         `json:"error,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// RunFunc 阶段入口，出错时 Result 可为 nil 也可携带已提交的部分计数
type RunFunc func(ctx context.Context) (service.Result, error)

// Stage 把 service 的阶段方法适配为 RunFunc
func Stage[T any](fn func(context.Context) (*T, error)) RunFunc {
	return func(ctx context.Context) (service.Result, error) {
		res, err := fn(ctx)
		if res == nil {
			return nil, err
		}
		if r, ok := any(res).(service.Result); ok {
			return r, err
		}
		return nil, err
	}
}

// PipelineJob 可由 cron、HTTP、Kafka 触发的流水线任务，同进程内单飞
type PipelineJob struct {
	name     string
	run      RunFunc
	registry *Registry
	running  atomic.Bool

	mu   sync.Mutex
	last *Summary
}

func (j *PipelineJob) Name() string {
	return j.name
}

func (j *PipelineJob) Running() bool {
	return j.running.Load()
}

// Last 最近一次完成的执行结果
func (j *PipelineJob) Last() *Summary {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.last
}

// Run 实现 cron.Job
func (j *PipelineJob) Run() {
	_, _ = j.Execute(context.Background())
}

// Execute 执行一次任务；已在运行时返回 busy 与 ErrJobBusy
func (j *PipelineJob) Execute(ctx context.Context) (*Summary, error) {
	r := j.registry
	ctx = logger.WithTrace(ctx, "job-"+j.name)
	summary := &Summary{
		Job:       j.name,
		Counts:    map[string]int{},
		TraceID:   logger.TraceID(ctx),
		StartedAt: r.now(),
	}

	if !j.running.CompareAndSwap(false, true) {
		return r.busy(ctx, summary, "job already running in this process")
	}
	defer j.running.Store(false)

	release, ok, err := r.acquire(ctx, j.name)
	if err != nil {
		log.WarnContext(ctx, "job lock unavailable, running without it", "job", j.name, "err", err)
	}
	if !ok {
		return r.busy(ctx, summary, "job locked by another instance")
	}
	defer release()

	r.metrics.running(j.name, true)
	defer r.metrics.running(j.name, false)

	log.InfoContext(ctx, "job started", "job", j.name)
	res, runErr := j.run(ctx)
	summary.FinishedAt = r.now()
	if res != nil {
		summary.Counts = res.Counts()
	}
	summary.Status = statusOf(res, runErr)
	if runErr != nil {
		summary.Error = runErr.Error()
		log.ErrorContext(ctx, "job failed", "job", j.name, "counts", summary.Counts, "err", runErr)
	} else {
		log.InfoContext(ctx, "job finished", "job", j.name, "status", summary.Status, "counts", summary.Counts,
			"elapsed", summary.FinishedAt.Sub(summary.StartedAt).String())
	}

	j.mu.Lock()
	j.last = summary
	j.mu.Unlock()

	r.finish(ctx, summary)
	return summary, runErr
}

func statusOf(res service.Result, err error) string {
	if err != nil {
		return consts.JobStatusError
	}
	if pr, ok := res.(*service.PublishResult); ok && pr.Status == service.PublishStatusDisabled {
		return consts.JobStatusDisabled
	}
	return consts.JobStatusOK
}

// Registry 按名称管理流水线任务
type Registry struct {
	jobs    map[string]*PipelineJob
	order   []string
	locker  service.Locker
	lockTTL time.Duration
	events  service.EventSink
	metrics *Metrics
	now     service.Clock
}

// NewRegistry locker 为 nil 时只做进程内单飞
func NewRegistry(locker service.Locker, lockTTL time.Duration, events service.EventSink, metrics *Metrics, now service.Clock) *Registry {
	if now == nil {
		now = service.SystemClock
	}
	return &Registry{
		jobs:    make(map[string]*PipelineJob),
		locker:  locker,
		lockTTL: lockTTL,
		events:  events,
		metrics: metrics,
		now:     now,
	}
}

// Register 同名重复注册会覆盖前者
func (r *Registry) Register(name string, run RunFunc) *PipelineJob {
	j := &PipelineJob{name: name, run: run, registry: r}
	if _, exists := r.jobs[name]; !exists {
		r.order = append(r.order, name)
	}
	r.jobs[name] = j
	return j
}

func (r *Registry) Get(name string) (*PipelineJob, bool) {
	j, ok := r.jobs[name]
	return j, ok
}

// Jobs 按注册顺序返回
func (r *Registry) Jobs() []*PipelineJob {
	jobs := make([]*PipelineJob, 0, len(r.order))
	for _, name := range r.order {
		jobs = append(jobs, r.jobs[name])
	}
	return jobs
}

// Run 按名称触发任务
func (r *Registry) Run(ctx context.Context, name string) (*Summary, error) {
	j, ok := r.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", service.ErrJobNotFound, name)
	}
	return j.Execute(ctx)
}

func (r *Registry) acquire(ctx context.Context, name string) (func(), bool, error) {
	noop := func() {}
	if r.locker == nil {
		return noop, true, nil
	}
	key := consts.JobLock + name
	owner := uuid.NewString()
	ok, err := r.locker.TryLock(ctx, key, owner, r.lockTTL)
	if err != nil {
		// 锁服务不可用时退化为进程内单飞
		return noop, true, err
	}
	if !ok {
		return noop, false, nil
	}
	return func() {
		if err := r.locker.UnLock(context.WithoutCancel(ctx), key, owner); err != nil {
			log.WarnContext(ctx, "release job lock failed", "job", name, "err", err)
		}
	}, true, nil
}

func (r *Registry) busy(ctx context.Context, summary *Summary, reason string) (*Summary, error) {
	summary.Status = consts.JobStatusBusy
	summary.FinishedAt = summary.StartedAt
	log.InfoContext(ctx, "job skipped", "job", summary.Job, "reason", reason)
	r.metrics.observe(summary)
	return summary, service.ErrJobBusy
}

func (r *Registry) finish(ctx context.Context, summary *Summary) {
	r.metrics.observe(summary)
	if r.events == nil {
		return
	}
	data := map[string]any{
		"job":         summary.Job,
		"status":      summary.Status,
		"counts":      summary.Counts,
		"started_at":  summary.StartedAt,
		"finished_at": summary.FinishedAt,
	}
	if summary.Error != "" {
		data["error"] = summary.Error
	}
	event := &model.PipelineEvent{Type: model.EventJobFinished, Data: data, At: summary.FinishedAt}
	if err := r.events.Emit(ctx, event); err != nil {
		log.WarnContext(ctx, "emit job event failed", "job", summary.Job, "err", err)
	}
}

// IsBusy 触发方据此区分忙碌与失败
func IsBusy(err error) bool {
	return errors.Is(err, service.ErrJobBusy)
}
