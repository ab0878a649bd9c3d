package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-remind-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = gorm.ErrRecordNotFound

// upsertColumns are refreshed when an imported memory's file URL already exists.
var upsertColumns = []string{"event_name", "file_name", "file_type", "description", "people", "event_summary", "updated_at", "deleted_at"}

// UpsertMemories inserts the given memories, replacing the metadata of rows
// that share a FileURL. Missing IDs are generated and file types are
// lowercased. It returns the number of rows written.
func UpsertMemories(ctx context.Context, db *gorm.DB, items []domain.Memory) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		items[i].FileType = strings.ToLower(strings.TrimSpace(items[i].FileType))
	}
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "file_url"}},
			DoUpdates: clause.AssignmentColumns(upsertColumns),
		}).
		CreateInBatches(items, 100)
	return res.RowsAffected, res.Error
}

// ListMemories returns the whole catalog ordered by event and creation time.
func ListMemories(ctx context.Context, db *gorm.DB) ([]domain.Memory, error) {
	var out []domain.Memory
	err := db.WithContext(ctx).
		Order("event_name ASC, created_at ASC, id ASC").
		Find(&out).Error
	return out, err
}

// GetMemory fetches a single memory by ID, or ErrNotFound.
func GetMemory(ctx context.Context, db *gorm.DB, id string) (*domain.Memory, error) {
	var m domain.Memory
	if err := db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMemory soft-deletes a memory by ID. Returns ErrNotFound if no row matched.
func DeleteMemory(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Memory{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
