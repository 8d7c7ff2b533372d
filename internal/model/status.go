package model

import (
	"errors"
	"fmt"
)

// ErrIllegalTransition 状态迁移不在允许表内
var ErrIllegalTransition = errors.New("illegal status transition")

type transitionTable[S ~string] map[S][]S

func (t transitionTable[S]) check(from, to S) error {
	for _, next := range t[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// IdeaStatus 选题状态
type IdeaStatus string

const (
	IdeaNew       IdeaStatus = "new"
	IdeaScored    IdeaStatus = "scored"
	IdeaDrafted   IdeaStatus = "drafted"
	// IdeaDuplicate 生成内容与已有草稿重复，不再重新生成
	IdeaDuplicate IdeaStatus = "duplicate"
)

var ideaTransitions = transitionTable[IdeaStatus]{
	IdeaNew:    {IdeaScored},
	IdeaScored: {IdeaDrafted, IdeaDuplicate},
}

// To 校验 s -> next 是否合法
func (s IdeaStatus) To(next IdeaStatus) error {
	return ideaTransitions.check(s, next)
}

// DraftStatus 草稿状态，rejected 与 posted 为终态
type DraftStatus string

const (
	DraftPending   DraftStatus = "draft"
	DraftApproved  DraftStatus = "approved"
	DraftRejected  DraftStatus = "rejected"
	DraftScheduled DraftStatus = "scheduled"
	DraftPosted    DraftStatus = "posted"
)

var draftTransitions = transitionTable[DraftStatus]{
	DraftPending:   {DraftApproved, DraftRejected},
	DraftApproved:  {DraftScheduled},
	DraftScheduled: {DraftPosted},
}

func (s DraftStatus) To(next DraftStatus) error {
	return draftTransitions.check(s, next)
}

// ActiveDraftStatuses 参与相似度比对的草稿状态
var ActiveDraftStatuses = []DraftStatus{DraftPending, DraftApproved, DraftScheduled, DraftPosted}

// ScheduleStatus 排期状态，publishing 为执行器认领中的中间态
type ScheduleStatus string

const (
	ScheduleScheduled  ScheduleStatus = "scheduled"
	SchedulePublishing ScheduleStatus = "publishing"
	SchedulePosted     ScheduleStatus = "posted"
	ScheduleFailed     ScheduleStatus = "failed"
	ScheduleSkipped    ScheduleStatus = "skipped"
)

var scheduleTransitions = transitionTable[ScheduleStatus]{
	ScheduleScheduled:  {SchedulePublishing},
	SchedulePublishing: {SchedulePosted, ScheduleFailed, ScheduleSkipped, ScheduleScheduled},
}

func (s ScheduleStatus) To(next ScheduleStatus) error {
	return scheduleTransitions.check(s, next)
}

// Terminal 终态不可再迁移
func (s ScheduleStatus) Terminal() bool {
	return len(scheduleTransitions[s]) == 0
}

const PostStatusPosted = "posted"
