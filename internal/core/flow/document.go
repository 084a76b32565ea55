package flow

// Document is the persisted form of a flow: the three aligned collections
// the editor has always stored, plus the flow name.
type Document struct {
	Name        string             `json:"name"`
	Nodes       []NodeRecord       `json:"nodes"`
	Edges       []Edge             `json:"edges"`
	NodeConfigs []NodeConfigRecord `json:"nodeConfigs"`
}

// NodeRecord is the canvas half of a persisted card
type NodeRecord struct {
	ID                 NodeID   `json:"id"`
	Type               NodeType `json:"type"`
	Label              string   `json:"label"`
	Module             Module   `json:"module"`
	ExternalID         *int64   `json:"externalId"`
	DTMF               *int     `json:"dtmf"`
	ParentExperienceID *int64   `json:"parentExperienceId"`
	Position           Position `json:"position"`
}

// NodeConfigRecord is the configuration half of a persisted card. Data is
// the type-specific field bag.
type NodeConfigRecord struct {
	ID               NodeID                 `json:"id"`
	Type             NodeType               `json:"type"`
	Module           Module                 `json:"module"`
	ExternalID       *int64                 `json:"externalId"`
	ParentExternalID *int64                 `json:"parentExternalId"`
	Submitted        bool                   `json:"submitted"`
	Data             map[string]interface{} `json:"data"`
}

// OptionalInt64 returns nil for the zero value
func OptionalInt64(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

// OptionalInt returns nil for the zero value
func OptionalInt(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}

// Deref returns the pointed-to value or zero
func Deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
