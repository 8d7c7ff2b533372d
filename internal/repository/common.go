package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type statusMachine[S any] interface {
	~string
	To(S) error
}

// casStatus 校验状态表后按 id + 原状态条件更新，返回是否命中
func casStatus[S statusMachine[S]](tx *gorm.DB, value any, id uint64, from, to S, extra map[string]any) (bool, error) {
	if err := from.To(to); err != nil {
		return false, err
	}
	updates := map[string]any{"status": string(to)}
	for k, v := range extra {
		updates[k] = v
	}
	result := tx.Model(value).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func insertIgnore(tx *gorm.DB, value any, columns ...string) (bool, error) {
	cols := make([]clause.Column, len(columns))
	for i, c := range columns {
		cols[i] = clause.Column{Name: c}
	}
	result := tx.Clauses(clause.OnConflict{Columns: cols, DoNothing: true}).Create(value)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func firstOrNil[T any](tx *gorm.DB, query ...any) (*T, error) {
	var out T
	if err := tx.First(&out, query...).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

var (
	// errRollback 回滚事务但不作为错误返回
	errRollback = errors.New("rollback")
	// ErrDuplicateExternalID 平台帖子 id 已被记录
	ErrDuplicateExternalID = errors.New("external post id already recorded")
)
