package merkle

import "arbiter/internal/domain"

// Tree is an immutable snapshot of a leaf set with all intermediate layers kept, so any
// number of inclusion paths can be read without rehashing.
type Tree struct {
	layers [][]domain.Digest
}

func NewTree(leaves []domain.Digest) *Tree {
	return &Tree{layers: Layers(leaves)}
}

func (t *Tree) Len() int {
	if len(t.layers) == 0 {
		return 0
	}
	return len(t.layers[0])
}

func (t *Tree) Root() (domain.Digest, bool) {
	if len(t.layers) == 0 {
		return domain.Digest{}, false
	}
	return t.layers[len(t.layers)-1][0], true
}

func (t *Tree) Leaf(index int) (domain.Digest, error) {
	if index < 0 || index >= t.Len() {
		return domain.Digest{}, outOfRange(index, t.Len())
	}
	return t.layers[0][index], nil
}

func (t *Tree) Path(index int) ([]domain.PathStep, error) {
	if t.Len() == 0 {
		return []domain.PathStep{}, nil
	}
	if index < 0 || index >= t.Len() {
		return nil, outOfRange(index, t.Len())
	}
	return pathFromLayers(t.layers, index), nil
}

// Layer returns a copy of layer depth, where 0 is the leaf layer.
func (t *Tree) Layer(depth int) []domain.Digest {
	if depth < 0 || depth >= len(t.layers) {
		return nil
	}
	return cloneLeaves(t.layers[depth])
}

func (t *Tree) Depth() int {
	if len(t.layers) == 0 {
		return 0
	}
	return len(t.layers) - 1
}
