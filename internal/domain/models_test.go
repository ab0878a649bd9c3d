package domain

import (
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDomainDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func TestTableNames(t *testing.T) {
	if (Memory{}).TableName() != "memories" {
		t.Fatalf("Memory.TableName() = %q; want %q", (Memory{}).TableName(), "memories")
	}
	if (AgentProfile{}).TableName() != "agent_profiles" {
		t.Fatalf("AgentProfile.TableName() = %q", (AgentProfile{}).TableName())
	}
	if (Idempotency{}).TableName() != "idempotency" {
		t.Fatalf("Idempotency.TableName() = %q", (Idempotency{}).TableName())
	}
}

func TestMemory_Orientation(t *testing.T) {
	cases := []struct {
		m        Memory
		image    bool
		vertical bool
	}{
		{Memory{FileType: "image", Description: "vertical selfie"}, true, false},
		{Memory{FileType: "VIDEO", Description: "Portrait clip of the pier"}, false, true},
		{Memory{FileType: "video", Description: "Vertical video at the zoo"}, false, true},
		{Memory{FileType: "video", Description: "wide shot of the lake"}, false, false},
	}
	for i, tc := range cases {
		if got := tc.m.IsImage(); got != tc.image {
			t.Fatalf("case %d: IsImage=%v want %v", i, got, tc.image)
		}
		if got := tc.m.IsVertical(); got != tc.vertical {
			t.Fatalf("case %d: IsVertical=%v want %v", i, got, tc.vertical)
		}
	}
}

func TestMigrations_IndexesAndSerializers(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&Memory{}, &AgentProfile{}, &Idempotency{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasIndex(&Memory{}, "ux_memory_file_url") {
		t.Fatalf("expected unique index ux_memory_file_url on memories")
	}
	if !m.HasIndex(&AgentProfile{}, "ux_agent_name") {
		t.Fatalf("expected unique index ux_agent_name on agent_profiles")
	}
	if !m.HasIndex(&Idempotency{}, "ux_patient_scope_key") {
		t.Fatalf("expected unique index ux_patient_scope_key on idempotency")
	}

	now := time.Now().UTC()
	mem := &Memory{
		ID: "m1", EventName: "Beach day", FileType: FileTypeImage, Description: "sand castle",
		People: []string{"Avery", "Grandpa"}, FileURL: "https://cdn/x.jpg", CreatedAt: now, UpdatedAt: now,
	}
	if err := db.Create(mem).Error; err != nil {
		t.Fatalf("insert memory: %v", err)
	}
	var got Memory
	if err := db.First(&got, "id = ?", "m1").Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if len(got.People) != 2 || got.People[1] != "Grandpa" {
		t.Fatalf("people did not round-trip: %+v", got.People)
	}

	dup := &Memory{ID: "m2", EventName: "Beach day", FileType: FileTypeImage, Description: "dup", FileURL: "https://cdn/x.jpg"}
	if err := db.Create(dup).Error; err == nil {
		t.Fatalf("expected UNIQUE violation on file_url")
	}
	bad := &Memory{ID: "m3", EventName: "x", FileType: "audio", Description: "y", FileURL: "https://cdn/y.mp3"}
	if err := db.Create(bad).Error; err == nil {
		t.Fatalf("expected CHECK violation on file_type")
	}

	agent := DefaultAgent()
	agent.ID = "a1"
	if err := db.Create(&agent).Error; err != nil {
		t.Fatalf("insert agent: %v", err)
	}
	var ga AgentProfile
	if err := db.First(&ga, "name = ?", DefaultAgentName).Error; err != nil {
		t.Fatalf("readback agent: %v", err)
	}
	if ga.Knowledge["relationship"] != "granddaughter" {
		t.Fatalf("knowledge did not round-trip: %+v", ga.Knowledge)
	}
}
