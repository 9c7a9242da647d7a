package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stakevault/core/events"
	"stakevault/core/types"
	"stakevault/native/vault"
)

// ErrNotFound is returned when no record matches the query.
var ErrNotFound = errors.New("indexer: not found")

// Indexer projects published events into a relational store. It implements
// events.Emitter so it can be attached to the state processor directly.
type Indexer struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time

	mu  sync.Mutex
	seq uint64
}

var _ events.Emitter = (*Indexer)(nil)

// New migrates db and returns an indexer writing to it.
func New(db *gorm.DB, logger *slog.Logger) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: nil database")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	idx := &Indexer{db: db, logger: logger, now: time.Now}
	var last EventRecord
	err := db.Order("sequence desc").Limit(1).Find(&last).Error
	if err != nil {
		return nil, err
	}
	idx.seq = last.Sequence
	return idx, nil
}

// SetNowFunc overrides the clock used for record timestamps.
func (i *Indexer) SetNowFunc(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	i.now = now
}

// Emit implements events.Emitter. Failures are logged; publication never
// blocks state transitions.
func (i *Indexer) Emit(evt events.Event) {
	if i == nil || evt == nil {
		return
	}
	payload := events.Payload(evt)
	if payload == nil {
		payload = &types.Event{Type: evt.EventType()}
	}
	if err := i.Index(context.Background(), payload); err != nil {
		i.logger.Error("index event", slog.String("type", payload.Type), slog.Any("error", err))
	}
}

// Index stores evt and updates the vault projection it refers to.
func (i *Indexer) Index(ctx context.Context, evt *types.Event) error {
	attrs, err := json.Marshal(evt.Attributes)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.now().UTC()
	vaultAddr := evt.Attributes["vault"]
	return i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := EventRecord{
			ID:         uuid.New(),
			Sequence:   i.seq + 1,
			Vault:      vaultAddr,
			Type:       evt.Type,
			Attributes: string(attrs),
			CreatedAt:  now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if vaultAddr != "" {
			if err := project(tx, vaultAddr, evt, now); err != nil {
				return err
			}
		}
		i.seq = record.Sequence
		return nil
	})
}

func project(tx *gorm.DB, vaultAddr string, evt *types.Event, now time.Time) error {
	if evt.Type == vault.EventTypeVaultInstantiated {
		codeID, _ := strconv.ParseUint(evt.Attributes["codeId"], 10, 64)
		index, _ := strconv.ParseUint(evt.Attributes["index"], 10, 64)
		rec := VaultRecord{
			Address:   vaultAddr,
			Owner:     evt.Attributes["owner"],
			CodeID:    codeID,
			Index:     index,
			Status:    StatusIdle,
			Events:    1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
	}

	var rec VaultRecord
	err := tx.First(&rec, "address = ?", vaultAddr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rec = VaultRecord{Address: vaultAddr, Status: StatusIdle, CreatedAt: now}
	} else if err != nil {
		return err
	}

	switch evt.Type {
	case vault.EventTypeRequestOpened:
		rec.Status = StatusPending
		rec.OptionKind = evt.Attributes["kind"]
		rec.Requested = evt.Attributes["requested"]
		rec.Lender = ""
	case vault.EventTypeRequestAccepted:
		rec.Status = StatusActive
		rec.OptionKind = evt.Attributes["kind"]
		rec.Lender = evt.Attributes["lender"]
	case vault.EventTypeLiquidationStarted:
		rec.Status = StatusLiquidating
	case vault.EventTypeRequestClosed, vault.EventTypeLoanRepaid, vault.EventTypeLiquidationCompleted:
		rec.Status = StatusIdle
		rec.OptionKind = ""
		rec.Requested = ""
		rec.Lender = ""
	case vault.EventTypeOwnershipTransferred:
		rec.Owner = evt.Attributes["owner"]
	}
	rec.Events++
	rec.UpdatedAt = now
	return tx.Save(&rec).Error
}

// Vault returns the projection for addr.
func (i *Indexer) Vault(ctx context.Context, addr string) (*VaultRecord, error) {
	var rec VaultRecord
	err := i.db.WithContext(ctx).First(&rec, "address = ?", addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// VaultsByLender lists vaults whose active liquidity request was funded by
// lender.
func (i *Indexer) VaultsByLender(ctx context.Context, lender string) ([]VaultRecord, error) {
	var out []VaultRecord
	err := i.db.WithContext(ctx).Where("lender = ?", lender).Order("address").Find(&out).Error
	return out, err
}

// VaultsByStatus lists vaults in status.
func (i *Indexer) VaultsByStatus(ctx context.Context, status string) ([]VaultRecord, error) {
	var out []VaultRecord
	err := i.db.WithContext(ctx).Where("status = ?", status).Order("address").Find(&out).Error
	return out, err
}

// History returns up to limit events recorded for vaultAddr, oldest first.
func (i *Indexer) History(ctx context.Context, vaultAddr string, limit int) ([]*types.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}
	var rows []EventRecord
	err := i.db.WithContext(ctx).
		Where("vault = ?", vaultAddr).
		Order("sequence desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*types.Event, 0, len(rows))
	for j := len(rows) - 1; j >= 0; j-- {
		evt := &types.Event{Type: rows[j].Type, Attributes: map[string]string{}}
		if rows[j].Attributes != "" && rows[j].Attributes != "null" {
			if err := json.Unmarshal([]byte(rows[j].Attributes), &evt.Attributes); err != nil {
				return nil, err
			}
		}
		out = append(out, evt)
	}
	return out, nil
}
