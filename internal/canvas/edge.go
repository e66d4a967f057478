package canvas

import "fmt"

// Edge is a directed connection from one node's output port to another
// node's input port. Handles disambiguate ports on nodes that expose more
// than one (a join's left/right inputs).
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// EdgeID builds the deterministic id for a connection. Deterministic ids
// keep edges stable across rebuilds from backend entity lists.
func EdgeID(source, target, targetHandle string) string {
	if targetHandle != "" {
		return fmt.Sprintf("e-%s-%s-%s", source, target, targetHandle)
	}
	return fmt.Sprintf("e-%s-%s", source, target)
}
