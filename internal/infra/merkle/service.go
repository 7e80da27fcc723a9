package merkle

import "arbiter/internal/domain"

// Service exposes the accumulator to callers that take it as a dependency.
type Service struct{}

func (s *Service) Root(leaves []domain.Digest) (domain.Digest, bool) {
	return Root(leaves)
}

func (s *Service) InclusionPath(index int, leaves []domain.Digest) ([]domain.PathStep, error) {
	return InclusionPath(index, leaves)
}

func (s *Service) VerifyInclusion(leaf domain.Digest, index int64, path []domain.PathStep, root domain.Digest) (bool, error) {
	return VerifyInclusion(leaf, int(index), path, root)
}
