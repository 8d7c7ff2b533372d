package service

import (
	"Signalforge/internal/api/config"
	"Signalforge/internal/pkg/content"
	"time"
)

// 策略默认值
const (
	DefaultMaxSingleLength    = 240
	DefaultMaxSegmentLength   = 260
	DefaultSourceSimilarity   = 0.8
	DefaultDraftSimilarity    = 0.85
	DefaultWeightFloor        = 0.5
	DefaultWeightCeiling      = 2.0
	DefaultPublishMaxAttempts = 3
	DefaultBackoffBase        = 5 * time.Minute
	DefaultBackoffCap         = 60 * time.Minute
	DefaultClaimLease         = 5 * time.Minute
	DefaultAccountLockTTL     = time.Minute
	DefaultRecencyWindowDays  = 7
	DefaultCallTimeout        = 15 * time.Second

	MinSelectionWeight = 0.01
)

// Policy 流水线可调策略
type Policy struct {
	MaxSingleLength    int
	MaxSegmentLength   int
	SourceSimilarity   float64
	DraftSimilarity    float64
	WeightFloor        float64
	WeightCeiling      float64
	PublishMaxAttempts int
	BackoffBase        time.Duration
	BackoffCap         time.Duration
	ClaimLease         time.Duration
	AccountLockTTL     time.Duration
	RecencyWindowDays  int
	CallTimeout        time.Duration
	PostingDisabled    bool
	Blocklist          *content.Blocklist
}

func DefaultPolicy() Policy {
	return Policy{
		MaxSingleLength:    DefaultMaxSingleLength,
		MaxSegmentLength:   DefaultMaxSegmentLength,
		SourceSimilarity:   DefaultSourceSimilarity,
		DraftSimilarity:    DefaultDraftSimilarity,
		WeightFloor:        DefaultWeightFloor,
		WeightCeiling:      DefaultWeightCeiling,
		PublishMaxAttempts: DefaultPublishMaxAttempts,
		BackoffBase:        DefaultBackoffBase,
		BackoffCap:         DefaultBackoffCap,
		ClaimLease:         DefaultClaimLease,
		AccountLockTTL:     DefaultAccountLockTTL,
		RecencyWindowDays:  DefaultRecencyWindowDays,
		CallTimeout:        DefaultCallTimeout,
		Blocklist:          content.NewBlocklist(),
	}
}

// PolicyFromConfig 零值字段保留默认
func PolicyFromConfig(cfg config.PipelineConfig) Policy {
	p := DefaultPolicy()
	p.PostingDisabled = cfg.PostingDisabled
	p.Blocklist = content.NewBlocklist(content.ParseTerms(cfg.SafetyBlocklist)...)
	setInt(&p.MaxSingleLength, cfg.MaxSingleLength)
	setInt(&p.MaxSegmentLength, cfg.MaxSegmentLength)
	setInt(&p.PublishMaxAttempts, cfg.PublishMaxAttempts)
	setInt(&p.RecencyWindowDays, cfg.RecencyWindowDays)
	setFloat(&p.SourceSimilarity, cfg.SourceSimilarity)
	setFloat(&p.DraftSimilarity, cfg.DraftSimilarity)
	setFloat(&p.WeightFloor, cfg.WeightFloor)
	setFloat(&p.WeightCeiling, cfg.WeightCeiling)
	setDuration(&p.BackoffBase, cfg.BackoffBaseMinutes, time.Minute)
	setDuration(&p.BackoffCap, cfg.BackoffCapMinutes, time.Minute)
	setDuration(&p.ClaimLease, cfg.ClaimLeaseSeconds, time.Second)
	setDuration(&p.AccountLockTTL, cfg.AccountLockSeconds, time.Second)
	setDuration(&p.CallTimeout, cfg.ExternalCallTimeoutSecs, time.Second)
	// 租约至少覆盖两次外部调用，线程每段落库时续租
	if p.CallTimeout > 0 && p.ClaimLease < 2*p.CallTimeout {
		p.ClaimLease = 2 * p.CallTimeout
	}
	return p
}

// Backoff 第 attempts 次失败后的等待：base * 2^(attempts-1)，不超过 cap
func (p Policy) Backoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	delay := p.BackoffBase
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= p.BackoffCap {
			return p.BackoffCap
		}
	}
	return min(delay, p.BackoffCap)
}

// ClampWeight 将格式权重限制在 [floor, ceiling]
func (p Policy) ClampWeight(w float64) float64 {
	return max(p.WeightFloor, min(w, p.WeightCeiling))
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v float64) {
	if v > 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v int, unit time.Duration) {
	if v > 0 {
		*dst = time.Duration(v) * unit
	}
}
