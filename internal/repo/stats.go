package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-remind-backend/internal/domain"
)

// CatalogStats summarizes the memory catalog.
type CatalogStats struct {
	Total       int64      `json:"total"`
	Images      int64      `json:"images"`
	Videos      int64      `json:"videos"`
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// MemoryStats counts catalogued memories by file type and reports the most
// recent UpdatedAt. An empty catalog yields zero counts and a nil timestamp.
func MemoryStats(ctx context.Context, db *gorm.DB) (CatalogStats, error) {
	var st CatalogStats
	var rows []struct {
		FileType string
		N        int64
	}
	if err := db.WithContext(ctx).Model(&domain.Memory{}).
		Select("file_type, count(*) AS n").Group("file_type").Scan(&rows).Error; err != nil {
		return CatalogStats{}, err
	}
	for _, r := range rows {
		st.Total += r.N
		switch r.FileType {
		case domain.FileTypeImage:
			st.Images = r.N
		case domain.FileTypeVideo:
			st.Videos = r.N
		}
	}
	if st.Total == 0 {
		return st, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err := db.WithContext(ctx).Model(&domain.Memory{}).
		Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return CatalogStats{}, err
	}
	st.LastUpdated = &row.UpdatedAt
	return st, nil
}
