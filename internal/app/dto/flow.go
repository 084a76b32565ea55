package dto

import (
	"time"

	"github.com/flowgraph/ivrflow/internal/core/flow"
)

// FlowRecord is a finalized flow as stored by a repository
type FlowRecord struct {
	ID        string        `json:"id" msgpack:"id"`
	Name      string        `json:"name" msgpack:"name"`
	Document  flow.Document `json:"document" msgpack:"document"`
	CreatedAt time.Time     `json:"created_at" msgpack:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" msgpack:"updated_at"`
}

// Summary returns the listing form of the record
func (r *FlowRecord) Summary() FlowSummary {
	return FlowSummary{
		ID:        r.ID,
		Name:      r.Name,
		Nodes:     len(r.Document.Nodes),
		UpdatedAt: r.UpdatedAt,
	}
}

// FlowSummary is one row of the flow listing
type FlowSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Nodes     int       `json:"nodes"`
	UpdatedAt time.Time `json:"updated_at"`
}
