package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"arbiter/internal/domain"
)

// CaseService loads a case, applies one flow transition and stores the result with an
// optimistic version check.
type CaseService struct {
	Cases CaseRepository
	Flow  *Flow
}

func NewCaseService(cases CaseRepository, flow *Flow) *CaseService {
	return &CaseService{Cases: cases, Flow: flow}
}

func (s *CaseService) ready() error {
	if s == nil || s.Cases == nil || s.Flow == nil {
		return errors.New("case service not configured")
	}
	return nil
}

func (s *CaseService) Open(ctx context.Context, input OpenInput) (domain.Case, error) {
	if err := s.ready(); err != nil {
		return domain.Case{}, err
	}
	c, err := s.Flow.Open(ctx, input)
	if err != nil {
		return domain.Case{}, err
	}
	return s.Cases.Create(ctx, c)
}

func (s *CaseService) Get(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	if err := s.ready(); err != nil {
		return domain.Case{}, err
	}
	return s.Cases.Get(ctx, id)
}

func (s *CaseService) List(ctx context.Context, limit int) ([]domain.Case, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Cases.List(ctx, limit)
}

func (s *CaseService) AttachEvidence(ctx context.Context, id uuid.UUID, files []domain.EvidenceFile) (domain.Case, error) {
	return s.apply(ctx, id, func(c domain.Case) (domain.Case, error) {
		return s.Flow.AttachEvidence(ctx, c, files)
	})
}

func (s *CaseService) Advance(ctx context.Context, id uuid.UUID, step domain.Step) (domain.Case, error) {
	return s.apply(ctx, id, func(c domain.Case) (domain.Case, error) {
		return s.Flow.Apply(ctx, c, step)
	})
}

func (s *CaseService) Prove(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	return s.Advance(ctx, id, domain.StepProof)
}

func (s *CaseService) Deliberate(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	return s.Advance(ctx, id, domain.StepDeliberation)
}

func (s *CaseService) Anchor(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	return s.Advance(ctx, id, domain.StepAnchor)
}

func (s *CaseService) Execute(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	return s.Advance(ctx, id, domain.StepExecution)
}

// Inclusion returns the inclusion path for one evidence index, recording it on first request.
func (s *CaseService) Inclusion(ctx context.Context, id uuid.UUID, index int) (domain.InclusionRecord, error) {
	if err := s.ready(); err != nil {
		return domain.InclusionRecord{}, err
	}
	current, err := s.Cases.Get(ctx, id)
	if err != nil {
		return domain.InclusionRecord{}, err
	}
	if rec, ok := current.Inclusion(index); ok {
		return rec, nil
	}
	next, rec, err := s.Flow.RecordInclusion(current, index)
	if err != nil {
		return domain.InclusionRecord{}, err
	}
	if _, err := s.Cases.Update(ctx, next, current.Version); err != nil {
		return domain.InclusionRecord{}, err
	}
	return rec, nil
}

func (s *CaseService) apply(ctx context.Context, id uuid.UUID, transition func(domain.Case) (domain.Case, error)) (domain.Case, error) {
	if err := s.ready(); err != nil {
		return domain.Case{}, err
	}
	current, err := s.Cases.Get(ctx, id)
	if err != nil {
		return domain.Case{}, err
	}
	next, err := transition(current)
	if err != nil {
		return domain.Case{}, err
	}
	return s.Cases.Update(ctx, next, current.Version)
}
