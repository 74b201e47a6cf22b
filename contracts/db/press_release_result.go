package db

import (
	"encoding/json"
	"time"
)

// PressReleaseResult 表示 press_release_results 表的一行
type PressReleaseResult struct {
	ResultKey string          `json:"result_key"`
	Record    json.RawMessage `json:"record"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
