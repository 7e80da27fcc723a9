package domain

import "fmt"

// Side says where a sibling is concatenated when recomputing its parent.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

func (s Side) Valid() bool {
	return s == SideLeft || s == SideRight
}

func ParseSide(value string) (Side, error) {
	side := Side(value)
	if !side.Valid() {
		return "", fmt.Errorf("%w: side must be left or right", ErrInvalidArgument)
	}
	return side, nil
}

// PathStep is one level of an inclusion path, ordered from the leaf upwards.
type PathStep struct {
	Sibling Digest `json:"sibling"`
	Side    Side   `json:"side"`
}

// InclusionRecord is an inclusion path recorded against a case's current leaf snapshot.
type InclusionRecord struct {
	Index int        `json:"index"`
	Leaf  Digest     `json:"leaf"`
	Path  []PathStep `json:"path"`
	Root  Digest     `json:"root"`
}

func ClonePath(path []PathStep) []PathStep {
	if path == nil {
		return nil
	}
	out := make([]PathStep, len(path))
	copy(out, path)
	return out
}
