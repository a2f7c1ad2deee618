package journal

import (
	"time"

	"github.com/danielpatrickdp/twin-engine/internal/classify"
	"github.com/danielpatrickdp/twin-engine/internal/engine"
)

// #region entry
// Entry is one recorded run as stored in the runs table.
type Entry struct {
	RunID         string                `json:"run_id"`
	Impact        int                   `json:"impact"`
	Label         string                `json:"label"`
	Status        classify.Status       `json:"status"`
	Inputs        map[string]float64    `json:"inputs"`
	Contributions []engine.Contribution `json:"contributions"`
	StartedAt     time.Time             `json:"started_at"`
	CompletedAt   time.Time             `json:"completed_at"`
	RecordedAt    time.Time             `json:"recorded_at"`
}

// #endregion entry

// #region summary
// Summary aggregates recorded runs by status.
type Summary struct {
	Total     int
	ByStatus  map[classify.Status]int
	MinImpact int
	MaxImpact int
	AvgImpact float64
}

// #endregion summary
