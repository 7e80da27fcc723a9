package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"arbiter/internal/domain"
)

const hexSize = domain.DigestSize * 2

// NodeHash derives a parent from two children: SHA-256 over the ASCII text of
// hex(left) followed by hex(right), lowercase and without the display prefix.
func NodeHash(left, right domain.Digest) domain.Digest {
	var buf [2 * hexSize]byte
	hex.Encode(buf[:hexSize], left[:])
	hex.Encode(buf[hexSize:], right[:])
	return domain.Digest(sha256.Sum256(buf[:]))
}

// Root folds leaves pairwise until one digest remains. An odd layer pairs its last node
// with itself. The boolean is false for an empty leaf list, which has no root.
func Root(leaves []domain.Digest) (domain.Digest, bool) {
	if len(leaves) == 0 {
		return domain.Digest{}, false
	}
	level := cloneLeaves(leaves)
	for len(level) > 1 {
		level = parentLayer(level)
	}
	return level[0], true
}

// InclusionPath returns the sibling/side pairs that lead from leaves[index] to the root,
// ordered from the leaf level upwards. An empty leaf list yields an empty path.
func InclusionPath(index int, leaves []domain.Digest) ([]domain.PathStep, error) {
	if len(leaves) == 0 {
		return []domain.PathStep{}, nil
	}
	if index < 0 || index >= len(leaves) {
		return nil, outOfRange(index, len(leaves))
	}
	return pathFromLayers(Layers(leaves), index), nil
}

// VerifyInclusion recomputes the root from leaf and path and compares it with root.
// index must address a leaf of a tree whose depth is len(path); each side must match the
// corresponding bit of index, otherwise the path does not describe that position.
//
// The leaf count is not an input, so index is only bounded by 2^len(path). When a layer was
// padded by duplicating its last node, that node also verifies at the padded position: on
// leaves [a b c], c verifies at index 2 and at index 3. Callers that know the leaf count must
// check index against it themselves.
func VerifyInclusion(leaf domain.Digest, index int, path []domain.PathStep, root domain.Digest) (bool, error) {
	if index < 0 || (len(path) < 62 && index >= 1<<len(path)) {
		return false, fmt.Errorf("%w: index %d cannot address a leaf at depth %d", domain.ErrOutOfRange, index, len(path))
	}
	running := leaf
	position := index
	for i, step := range path {
		if !step.Side.Valid() {
			return false, fmt.Errorf("%w: path step %d has side %q", domain.ErrInvalidArgument, i, step.Side)
		}
		switch step.Side {
		case domain.SideLeft:
			if position%2 == 0 {
				return false, nil
			}
			running = NodeHash(step.Sibling, running)
		default:
			if position%2 == 1 {
				return false, nil
			}
			running = NodeHash(running, step.Sibling)
		}
		position /= 2
	}
	return running == root, nil
}

// Layers returns every real layer of the tree, leaves first and root last. Layers keep
// their true length; the duplicated node of an odd layer is not stored.
func Layers(leaves []domain.Digest) [][]domain.Digest {
	if len(leaves) == 0 {
		return nil
	}
	layers := [][]domain.Digest{cloneLeaves(leaves)}
	for current := layers[0]; len(current) > 1; {
		current = parentLayer(current)
		layers = append(layers, current)
	}
	return layers
}

func parentLayer(level []domain.Digest) []domain.Digest {
	next := make([]domain.Digest, 0, (len(level)+1)/2)
	for i := 0; i < len(level); i += 2 {
		right := level[i]
		if i+1 < len(level) {
			right = level[i+1]
		}
		next = append(next, NodeHash(level[i], right))
	}
	return next
}

func pathFromLayers(layers [][]domain.Digest, index int) []domain.PathStep {
	path := make([]domain.PathStep, 0, len(layers)-1)
	for _, layer := range layers[:len(layers)-1] {
		if index%2 == 0 {
			sibling := index + 1
			if sibling >= len(layer) {
				sibling = index
			}
			path = append(path, domain.PathStep{Sibling: layer[sibling], Side: domain.SideRight})
		} else {
			path = append(path, domain.PathStep{Sibling: layer[index-1], Side: domain.SideLeft})
		}
		index /= 2
	}
	return path
}

func cloneLeaves(leaves []domain.Digest) []domain.Digest {
	out := make([]domain.Digest, len(leaves))
	copy(out, leaves)
	return out
}

func outOfRange(index, size int) error {
	return fmt.Errorf("%w: leaf index %d, tree has %d leaves", domain.ErrOutOfRange, index, size)
}
