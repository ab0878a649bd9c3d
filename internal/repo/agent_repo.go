package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-remind-backend/internal/domain"
)

// GetAgentByName looks an agent up by name, case-insensitively.
func GetAgentByName(ctx context.Context, db *gorm.DB, name string) (*domain.AgentProfile, error) {
	var a domain.AgentProfile
	err := db.WithContext(ctx).
		Where("lower(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAgents returns all agent profiles ordered by name.
func ListAgents(ctx context.Context, db *gorm.DB) ([]domain.AgentProfile, error) {
	var out []domain.AgentProfile
	err := db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

// EnsureDefaultAgent creates the default persona unless one with its name exists.
func EnsureDefaultAgent(ctx context.Context, db *gorm.DB) error {
	def := domain.DefaultAgent()
	def.ID = uuid.NewString()
	var existing domain.AgentProfile
	return db.WithContext(ctx).
		Where("name = ?", def.Name).
		Attrs(def).
		FirstOrCreate(&existing).Error
}
