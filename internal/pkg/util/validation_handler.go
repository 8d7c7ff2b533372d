package util

import (
	"Signalforge/internal/service"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateDTO 校验失败时返回包装了 ErrParamInvalid 的首个字段错误
func ValidateDTO(dto any) error {
	if err := validate.Struct(dto); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			firstError := vErrs[0]
			return fmt.Errorf("%w: 字段 [%s] 校验失败，规则 [%s]",
				service.ErrParamInvalid,
				firstError.Field(),
				firstError.Tag())
		}
		return fmt.Errorf("%w: %v", service.ErrParamInvalid, err)
	}
	return nil
}

// ParseID 解析路径中的正整数 ID
func ParseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, service.ErrParamInvalid
	}
	return id, nil
}
