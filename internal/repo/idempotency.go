package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-remind-backend/internal/domain"
)

// ErrDuplicate indicates that an idempotency record already exists for the
// given (patient, scope, key).
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns the non-expired record of patientID for (scope, key)
// or ErrNotFound. Records of other patients are never returned.
func GetIdempotency(ctx context.Context, db *gorm.DB, patientID, scope, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("patient_id = ? AND scope = ? AND key = ? AND expires_at > ?", patientID, scope, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency stores a response for (patient, scope, key) valid for ttl
// and returns ErrDuplicate on unique violation. Expired rows for the same
// triple are removed first so a key can be reused after its window.
func CreateIdempotency(ctx context.Context, db *gorm.DB, rec domain.Idempotency, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.ExpiresAt = now.Add(ttl)

	db = db.WithContext(ctx)
	if err := db.Where("patient_id = ? AND scope = ? AND key = ? AND expires_at <= ?", rec.PatientID, rec.Scope, rec.Key, now).
		Delete(&domain.Idempotency{}).Error; err != nil {
		return nil, err
	}
	if err := db.Create(&rec).Error; err != nil {
		// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return &rec, nil
}

// PurgeIdempotency deletes every record expired at now and reports how many.
func PurgeIdempotency(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&domain.Idempotency{})
	return res.RowsAffected, res.Error
}
