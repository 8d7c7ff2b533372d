package service

import (
	"Signalforge/internal/model"
	"Signalforge/internal/repository"
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	Conflict            = 409
	InternalServerError = 500
)

var (
	ErrParamInvalid        = errors.New("参数错误")
	ErrJobNotFound         = errors.New("任务不存在")
	ErrJobBusy             = errors.New("任务正在执行")
	ErrAccountNotFound     = errors.New("账号不存在")
	ErrSettingsMissing     = errors.New("账号未配置发布策略")
	ErrLockBusy            = errors.New("账号正被其他任务占用")
	ErrEmptyThread         = errors.New("empty thread")
	ErrNotClaimed          = errors.New("排期已被其他执行器认领")
	ErrPublisherMissing    = errors.New("发布连接器不可用")
	ErrIllegalTransition   = model.ErrIllegalTransition
	ErrDuplicateExternalID = repository.ErrDuplicateExternalID
	UnauthorizedError      = errors.New("权限不足")
	UnExpectedError        = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:        BadRequest,
	ErrJobNotFound:         NotFound,
	ErrJobBusy:             Conflict,
	ErrAccountNotFound:     NotFound,
	ErrSettingsMissing:     NotFound,
	ErrLockBusy:            Conflict,
	ErrNotClaimed:          Conflict,
	ErrIllegalTransition:   Conflict,
	ErrDuplicateExternalID: Conflict,
	UnauthorizedError:      Unauthorized,
	UnExpectedError:        InternalServerError,
}

// CodeOf 按错误链查找状态码，未登记的按 500 处理
func CodeOf(err error) int {
	for target, code := range ErrorMap {
		if errors.Is(err, target) {
			return code
		}
	}
	return InternalServerError
}

// fatalError 标记需要中止整批的存储错误
type fatalError struct {
	err error
}

func (e *fatalError) Error() string { return e.err.Error() }
func (e *fatalError) Unwrap() error { return e.err }

func fatal(err error) error {
	if err == nil {
		return nil
	}
	return &fatalError{err: err}
}

// IsFatal 是否为中止批次的错误
func IsFatal(err error) bool {
	var fe *fatalError
	return errors.As(err, &fe)
}
