// Package tableref identifies queryable tables across the four entity kinds
// of a pipeline project (sources, transforms, joins, qualitative analyses).
// Each kind has its own backend-assigned integer id space; a Ref tags the id
// with its kind so the pair can be used as a key anywhere in the client.
//
// Flat selection lists and the wire format still use a single integer
// namespace built from non-overlapping numeric bands. The band scheme is a
// compatibility surface, not the in-process representation: encoding fails
// loudly when an id would cross a band boundary.
package tableref

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which entity collection a table belongs to.
type Kind string

const (
	// KindSource is an imported source table ("sheet" on the wire).
	KindSource Kind = "sheet"
	// KindTransform is an AI transformation step.
	KindTransform Kind = "transformation"
	// KindJoin is a join operation.
	KindJoin Kind = "join"
	// KindQualitative is a qualitative (text) analysis operation.
	KindQualitative Kind = "qualitative"
)

// BandWidth is the size of each numeric namespace band. No kind may
// accumulate ids at or above this bound.
const BandWidth = 10000

// Band offsets per kind. Sources pass through unmodified.
const (
	offsetSource      = 0
	offsetTransform   = 1 * BandWidth
	offsetJoin        = 2 * BandWidth
	offsetQualitative = 3 * BandWidth
)

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSource, KindTransform, KindJoin, KindQualitative:
		return true
	}
	return false
}

// nodePrefix is the prefix used in canvas node id strings.
func (k Kind) nodePrefix() string {
	switch k {
	case KindSource:
		return "sheet"
	case KindTransform:
		return "step"
	case KindJoin:
		return "join"
	case KindQualitative:
		return "qualitative"
	}
	return ""
}

// Ref is the identity of one table: its kind plus the backend id within
// that kind. The zero Ref is invalid.
type Ref struct {
	Kind Kind
	ID   int
}

// New creates a Ref after validating the kind and id.
func New(kind Kind, id int) (Ref, error) {
	if !kind.Valid() {
		return Ref{}, fmt.Errorf("unknown table kind: %q", kind)
	}
	if id < 0 {
		return Ref{}, fmt.Errorf("negative table id: %d", id)
	}
	return Ref{Kind: kind, ID: id}, nil
}

// String returns a stable human-readable form, e.g. "transformation/3".
func (r Ref) String() string {
	return fmt.Sprintf("%s/%d", r.Kind, r.ID)
}

// IsZero reports whether r is the zero value.
func (r Ref) IsZero() bool {
	return r.Kind == "" && r.ID == 0
}

// Namespace encodes the ref into the flat integer namespace used by
// selection lists. It returns an error when the id would overflow its band;
// callers must treat that as a hard failure rather than risk a silent
// collision with the next band.
func (r Ref) Namespace() (int, error) {
	if !r.Kind.Valid() {
		return 0, fmt.Errorf("unknown table kind: %q", r.Kind)
	}
	if r.ID < 0 || r.ID >= BandWidth {
		return 0, fmt.Errorf("table id %d out of band for kind %s (max %d)", r.ID, r.Kind, BandWidth-1)
	}
	switch r.Kind {
	case KindTransform:
		return r.ID + offsetTransform, nil
	case KindJoin:
		return r.ID + offsetJoin, nil
	case KindQualitative:
		return r.ID + offsetQualitative, nil
	default:
		return r.ID + offsetSource, nil
	}
}

// FromNamespace decodes a flat namespace id back into a Ref by comparing
// against the band boundaries.
func FromNamespace(n int) (Ref, error) {
	switch {
	case n < 0:
		return Ref{}, fmt.Errorf("negative namespace id: %d", n)
	case n >= offsetQualitative+BandWidth:
		return Ref{}, fmt.Errorf("namespace id %d beyond highest band", n)
	case n >= offsetQualitative:
		return Ref{Kind: KindQualitative, ID: n - offsetQualitative}, nil
	case n >= offsetJoin:
		return Ref{Kind: KindJoin, ID: n - offsetJoin}, nil
	case n >= offsetTransform:
		return Ref{Kind: KindTransform, ID: n - offsetTransform}, nil
	default:
		return Ref{Kind: KindSource, ID: n}, nil
	}
}

// NodeID returns the canvas node id string for this table,
// e.g. "sheet-42", "step-7", "join-3", "qualitative-9".
func (r Ref) NodeID() string {
	return fmt.Sprintf("%s-%d", r.Kind.nodePrefix(), r.ID)
}

// ParseNodeID parses a canvas node id string back into a Ref.
func ParseNodeID(id string) (Ref, error) {
	idx := strings.LastIndex(id, "-")
	if idx <= 0 || idx == len(id)-1 {
		return Ref{}, fmt.Errorf("malformed node id: %q", id)
	}
	num, err := strconv.Atoi(id[idx+1:])
	if err != nil || num < 0 {
		return Ref{}, fmt.Errorf("malformed node id: %q", id)
	}

	switch id[:idx] {
	case "sheet":
		return Ref{Kind: KindSource, ID: num}, nil
	case "step":
		return Ref{Kind: KindTransform, ID: num}, nil
	case "join":
		return Ref{Kind: KindJoin, ID: num}, nil
	case "qualitative":
		return Ref{Kind: KindQualitative, ID: num}, nil
	}
	return Ref{}, fmt.Errorf("unknown node id prefix: %q", id)
}
