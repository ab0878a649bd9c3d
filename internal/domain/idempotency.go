package domain

import "time"

// Idempotency is the stored outcome of a previously processed request,
// keyed by (patient, scope, key) where scope is "<METHOD> <route>". Retrying a patient
// query with the same Idempotency-Key replays Body instead of marking more
// media as shown and appending duplicate turns.
type Idempotency struct {
	ID          string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	PatientID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_patient_scope_key,priority:1"`
	Scope       string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_patient_scope_key,priority:2"`
	Key         string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_patient_scope_key,priority:3"`
	Status      int       `gorm:"type:INTEGER NOT NULL"`
	ContentType string    `gorm:"type:TEXT NOT NULL"`
	Body        []byte    `gorm:"type:BLOB"`
	CreatedAt   time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt   time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
