package indexer

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vault lifecycle states tracked by the projection.
const (
	StatusIdle        = "IDLE"
	StatusPending     = "PENDING"
	StatusActive      = "ACTIVE"
	StatusLiquidating = "LIQUIDATING"
)

// VaultRecord is the latest known state of a vault.
type VaultRecord struct {
	Address    string `gorm:"primaryKey;size:128"`
	Owner      string `gorm:"size:128;index"`
	CodeID     uint64
	Index      uint64
	Status     string `gorm:"size:32;index"`
	OptionKind string `gorm:"size:64"`
	Requested  string `gorm:"size:128"`
	Lender     string `gorm:"size:128;index"`
	Events     uint64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EventRecord is an append-only copy of every published event.
type EventRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence   uint64    `gorm:"index"`
	Vault      string    `gorm:"size:128;index"`
	Type       string    `gorm:"size:64;index"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time
}

// AutoMigrate performs all schema migrations for the indexer.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&VaultRecord{}, &EventRecord{})
}
