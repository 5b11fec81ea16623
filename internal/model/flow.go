package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// Variables holds values collected during a flow execution.
type Variables map[string]any

func (v Variables) Value() (driver.Value, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

func (v *Variables) Scan(src any) error {
	if src == nil {
		*v = Variables{}
		return nil
	}
	var data []byte
	switch t := src.(type) {
	case []byte:
		data = t
	case string:
		data = []byte(t)
	default:
		return fmt.Errorf("unsupported variables type %T", src)
	}
	if len(data) == 0 {
		*v = Variables{}
		return nil
	}
	return json.Unmarshal(data, v)
}

// FlowExecution tracks one run of a visual flow graph for a call. PathTaken is
// best-effort and may be empty when the engine executes the graph natively.
type FlowExecution struct {
	ID          string         `db:"id" json:"id"`
	CallID      string         `db:"call_id" json:"callId"`
	FlowID      string         `db:"flow_id" json:"flowId"`
	Status      FlowStatus     `db:"status" json:"status"`
	Variables   Variables      `db:"variables" json:"variables"`
	PathTaken   pq.StringArray `db:"path_taken" json:"pathTaken"`
	StartedAt   *time.Time     `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt *time.Time     `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
}
