// Package domain defines the persistence models for the memory catalog and
// the agent profiles. These types are mapped with GORM and form the data
// layer of the memory-serving backend. Session state (shown content and
// conversation history) is deliberately not persisted; see package session.
package domain

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// File types a Memory may carry.
const (
	FileTypeImage = "image"
	FileTypeVideo = "video"
)

// Memory is one catalogued media item (a photo or a video) together with the
// descriptive metadata used for retrieval and narration.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - EventName: the event the media belongs to (indexed).
//   - FileName: original file name, informational only.
//   - FileType: "image" or "video" (enforced by DB constraint).
//   - Description: free text describing the scene. Videos whose description
//     mentions "vertical" or "portrait" are treated as vertical videos.
//   - People: names of the people shown, stored as a JSON array.
//   - EventSummary: one-paragraph summary of the event.
//   - FileURL: public URL of the media; unique, used as the content id.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Memory struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	EventName    string         `json:"event_name"    gorm:"type:varchar(255);not null;index:idx_memory_event"`
	FileName     string         `json:"file_name"     gorm:"type:varchar(255)"`
	FileType     string         `json:"file_type"     gorm:"type:varchar(8);not null;check:file_type IN ('image','video')"`
	Description  string         `json:"description"   gorm:"type:text;not null"`
	People       []string       `json:"people"        gorm:"serializer:json"`
	EventSummary string         `json:"event_summary" gorm:"type:text"`
	FileURL      string         `json:"file_url"      gorm:"type:varchar(1024);not null;uniqueIndex:ux_memory_file_url"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`
}

// TableName returns the database table name for Memory.
func (Memory) TableName() string { return "memories" }

// IsImage reports whether the memory is a still image.
func (m Memory) IsImage() bool { return strings.EqualFold(m.FileType, FileTypeImage) }

// IsVideo reports whether the memory is a video.
func (m Memory) IsVideo() bool { return strings.EqualFold(m.FileType, FileTypeVideo) }

// IsVertical reports whether a video is shot in portrait orientation,
// judged from its description.
func (m Memory) IsVertical() bool {
	if !m.IsVideo() {
		return false
	}
	d := strings.ToLower(m.Description)
	return strings.Contains(d, "vertical") || strings.Contains(d, "portrait")
}

// SearchText is the text a memory is matched on.
func (m Memory) SearchText() string {
	parts := []string{m.EventName, m.Description, strings.Join(m.People, " "), m.EventSummary}
	return strings.Join(parts, "\n")
}

// AgentProfile describes a conversational agent persona the patient can talk to.
type AgentProfile struct {
	ID          string            `json:"id"          gorm:"type:char(36);primaryKey"`
	Name        string            `json:"name"        gorm:"type:varchar(64);not null;uniqueIndex:ux_agent_name"`
	Description string            `json:"description" gorm:"type:text"`
	VoiceName   string            `json:"voice_name"  gorm:"type:varchar(64)"`
	Personality string            `json:"personality" gorm:"type:text"`
	Knowledge   map[string]string `json:"knowledge"   gorm:"serializer:json"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// TableName returns the database table name for AgentProfile.
func (AgentProfile) TableName() string { return "agent_profiles" }

// DefaultAgentName is the persona used when a request names none.
const DefaultAgentName = "Avery"

// DefaultAgent is the seeded persona.
func DefaultAgent() AgentProfile {
	return AgentProfile{
		Name:        DefaultAgentName,
		Description: "a warm family member who shared many of these moments",
		VoiceName:   "Rachel",
		Personality: "gentle, patient, upbeat, and fond of reminiscing",
		Knowledge: map[string]string{
			"relationship": "granddaughter",
			"favorites":    "beach days, ice cream, and family dinners",
		},
	}
}
