package flow

// EdgeID identifies a connection. Ids have the form <source>-><target>.
type EdgeID string

// EdgeIDFor returns the id of the connection source -> target
func EdgeIDFor(source, target NodeID) EdgeID {
	return EdgeID(string(source) + "->" + string(target))
}

// Edge is a parent -> child connection between two cards
type Edge struct {
	ID     EdgeID `json:"id"`
	Source NodeID `json:"source"`
	Target NodeID `json:"target"`
}

// Touches reports whether the edge starts or ends at id
func (e Edge) Touches(id NodeID) bool {
	return e.Source == id || e.Target == id
}
