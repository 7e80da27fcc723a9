package db

import "time"

// CaseModel stores a full case snapshot as JSONB next to the columns used for lookups.
type CaseModel struct {
	ID           string    `gorm:"type:uuid;primaryKey"`
	Preset       string    `gorm:"index;not null"`
	Status       string    `gorm:"index;not null"`
	Version      int       `gorm:"not null"`
	MerkleRoot   *string   `gorm:"index"`
	DecisionHash *string   `gorm:"index"`
	Snapshot     []byte    `gorm:"type:jsonb;not null"`
	OpenedAt     time.Time `gorm:"index;not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (CaseModel) TableName() string {
	return "cases"
}
