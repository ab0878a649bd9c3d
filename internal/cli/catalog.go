package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/tbourn/go-remind-backend/internal/domain"
)

// metadataColumns is the header of a catalog metadata CSV.
var metadataColumns = []string{
	"event_name", "file_name", "file_type", "description",
	"people", "event_summary", "file_url",
}

// decodeMemories reads a catalog file. Files ending in .csv are metadata
// CSVs whose people column holds a JSON array; anything else is a JSON
// array of memories.
func decodeMemories(name string, r io.Reader) ([]domain.Memory, error) {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return decodeMetadataCSV(r)
	}
	var items []domain.Memory
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return items, nil
}

func decodeMetadataCSV(r io.Reader) ([]domain.Memory, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range metadataColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}

	var out []domain.Memory
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		people, err := parsePeople(rec[col["people"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: people: %w", line, err)
		}
		out = append(out, domain.Memory{
			EventName:    rec[col["event_name"]],
			FileName:     rec[col["file_name"]],
			FileType:     rec[col["file_type"]],
			Description:  rec[col["description"]],
			People:       people,
			EventSummary: rec[col["event_summary"]],
			FileURL:      rec[col["file_url"]],
		})
	}
}

// parsePeople accepts a JSON array or a comma-separated list.
func parsePeople(s string) ([]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if strings.HasPrefix(s, "[") {
		var people []string
		if err := json.Unmarshal([]byte(s), &people); err != nil {
			return nil, err
		}
		return people, nil
	}
	var people []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			people = append(people, p)
		}
	}
	return people, nil
}
