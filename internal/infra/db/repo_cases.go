package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"arbiter/internal/domain"
)

type CaseRepository struct {
	db *gorm.DB
}

func NewCaseRepository(db *gorm.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

func (r *CaseRepository) Create(ctx context.Context, c domain.Case) (domain.Case, error) {
	if r.db == nil {
		return domain.Case{}, errDBUnavailable
	}
	c = c.Clone()
	c.Version = 1
	model, err := caseModelFromDomain(c)
	if err != nil {
		return domain.Case{}, err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.Case{}, fmt.Errorf("%w: case %s exists", domain.ErrConflict, c.ID)
		}
		return domain.Case{}, err
	}
	return c, nil
}

func (r *CaseRepository) Get(ctx context.Context, id uuid.UUID) (domain.Case, error) {
	if r.db == nil {
		return domain.Case{}, errDBUnavailable
	}
	var model CaseModel
	if err := r.db.WithContext(ctx).Where("id = ?", id.String()).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Case{}, fmt.Errorf("%w: case %s", domain.ErrNotFound, id)
		}
		return domain.Case{}, err
	}
	return caseFromModel(model)
}

// Update replaces the snapshot only while the stored version still equals expectedVersion.
func (r *CaseRepository) Update(ctx context.Context, c domain.Case, expectedVersion int) (domain.Case, error) {
	if r.db == nil {
		return domain.Case{}, errDBUnavailable
	}
	c = c.Clone()
	c.Version = expectedVersion + 1
	model, err := caseModelFromDomain(c)
	if err != nil {
		return domain.Case{}, err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&CaseModel{}).
			Where("id = ? AND version = ?", model.ID, expectedVersion).
			Updates(map[string]any{
				"status":        model.Status,
				"version":       model.Version,
				"merkle_root":   model.MerkleRoot,
				"decision_hash": model.DecisionHash,
				"snapshot":      model.Snapshot,
				"updated_at":    model.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
		var count int64
		if err := tx.Model(&CaseModel{}).Where("id = ?", model.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: case %s", domain.ErrNotFound, c.ID)
		}
		return fmt.Errorf("%w: case %s changed since version %d", domain.ErrStaleVersion, c.ID, expectedVersion)
	})
	if err != nil {
		return domain.Case{}, err
	}
	return c, nil
}

func (r *CaseRepository) List(ctx context.Context, limit int) ([]domain.Case, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []CaseModel
	if err := r.db.WithContext(ctx).
		Order("opened_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Case, 0, len(models))
	for _, model := range models {
		c, err := caseFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func caseModelFromDomain(c domain.Case) (CaseModel, error) {
	snapshot, err := json.Marshal(c)
	if err != nil {
		return CaseModel{}, fmt.Errorf("encode case snapshot: %w", err)
	}
	return CaseModel{
		ID:           c.ID.String(),
		Preset:       c.Preset,
		Status:       string(c.Status),
		Version:      c.Version,
		MerkleRoot:   digestPtrString(c.MerkleRoot),
		DecisionHash: digestPtrString(c.DecisionHash),
		Snapshot:     snapshot,
		OpenedAt:     c.OpenedAt.UTC(),
		UpdatedAt:    c.UpdatedAt.UTC(),
	}, nil
}

func caseFromModel(model CaseModel) (domain.Case, error) {
	var c domain.Case
	if err := json.Unmarshal(model.Snapshot, &c); err != nil {
		return domain.Case{}, fmt.Errorf("decode case snapshot %s: %w", model.ID, err)
	}
	c.Version = model.Version
	return c, nil
}
