package model

import (
	"database/sql/driver"
	"fmt"

	"github.com/goccy/go-json"
)

func scanJSON(value interface{}, dst any) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal JSON value: %v", value)
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dst)
}

// HourSet 允许发布的本地小时
type HourSet []int

func (h HourSet) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	b, err := json.Marshal(h)
	return string(b), err
}

func (h *HourSet) Scan(value interface{}) error {
	return scanJSON(value, h)
}

// WeightMap 格式/话题权重: map[key]weight
type WeightMap map[string]float64

func (w WeightMap) Value() (driver.Value, error) {
	if w == nil {
		return "{}", nil
	}
	b, err := json.Marshal(w)
	return string(b), err
}

func (w *WeightMap) Scan(value interface{}) error {
	return scanJSON(value, w)
}

// Get 缺省权重为 1.0
func (w WeightMap) Get(key string) float64 {
	if v, ok := w[key]; ok {
		return v
	}
	return 1.0
}

// PostedSegment 已成功发布的线程分段
type PostedSegment struct {
	Index  int    `json:"index"`
	PostID string `json:"post_id"`
	URL    string `json:"url"`
}

type SegmentList []PostedSegment

func (s SegmentList) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

func (s *SegmentList) Scan(value interface{}) error {
	return scanJSON(value, s)
}

// Last 最后一个已发布分段
func (s SegmentList) Last() (PostedSegment, bool) {
	if len(s) == 0 {
		return PostedSegment{}, false
	}
	return s[len(s)-1], true
}
