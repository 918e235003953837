// Package connector produces normalized source records from BookStack and
// Huly exports, either from local JSON files or from the source HTTP API.
// Connectors own normalization (markup stripping, field mapping); identity
// and upserts stay in core.
package connector

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/agenthands/quarry/internal/core/model"
)

type bookstackExport struct {
	ID       json.Number `json:"id"`
	Title    string      `json:"title"`
	BodyHTML string      `json:"body_html"`
	Book     string      `json:"book"`
	URL      string      `json:"url"`
	Tags     []string    `json:"tags"`
	// Either RFC3339 or absent depending on the exporter version.
	UpdatedAt string `json:"updated_at"`
}

type hulyExport struct {
	ID          json.Number `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	ProjectID   string      `json:"project_id"`
	// Millisecond epoch. NormalizeTimestamp in the mapper converts it.
	ModifiedOn json.Number `json:"modified_on"`
}

// LoadBookStackDir reads every .json page export under dir and normalizes it.
// Pages with no usable content are skipped, matching the upstream exporter's
// behavior of writing empty stubs for restricted pages.
func LoadBookStackDir(dir string) ([]model.SourceRecord, error) {
	var records []model.SourceRecord

	err := eachJSONFile(dir, func(path string, data []byte) {
		var page bookstackExport
		if err := json.Unmarshal(data, &page); err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			return
		}

		rec, ok := NormalizeBookStackPage(page)
		if !ok {
			log.Printf("Skipping empty page: %s (ID: %s)", page.Title, page.ID.String())
			return
		}
		records = append(records, rec)
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// LoadHulyDir reads every .json issue export under dir and normalizes it.
func LoadHulyDir(dir string) ([]model.SourceRecord, error) {
	var records []model.SourceRecord

	err := eachJSONFile(dir, func(path string, data []byte) {
		var issue hulyExport
		if err := json.Unmarshal(data, &issue); err != nil {
			log.Printf("Warning: skipping %s: %v", path, err)
			return
		}

		records = append(records, model.SourceRecord{
			NativeID:   issue.ID.String(),
			Title:      issue.Name,
			Body:       issue.Description,
			UpdatedAt:  issue.ModifiedOn.String(),
			Collection: "huly-" + issue.ProjectID,
			Source:     "huly",
			SourceDesc: "Huly project tracker content",
			Metadata: map[string]interface{}{
				"huly_project": issue.ProjectID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

// NormalizeBookStackPage maps one export entry to the canonical record shape.
// Returns false when the page has no usable content.
func NormalizeBookStackPage(page bookstackExport) (model.SourceRecord, bool) {
	text := HTMLToText(page.BodyHTML)
	if len(text) < 10 {
		return model.SourceRecord{}, false
	}

	id := page.ID.String()
	if id == "" || id == "0" {
		return model.SourceRecord{}, false
	}

	return model.SourceRecord{
		NativeID:   id,
		Title:      page.Title,
		Body:       text,
		UpdatedAt:  page.UpdatedAt,
		Tags:       page.Tags,
		Collection: page.Book,
		Source:     "bookstack",
		SourceDesc: "BookStack knowledge base content",
		Metadata: map[string]interface{}{
			"bookstack_id":  id,
			"bookstack_url": page.URL,
			"book_name":     page.Book,
		},
	}, true
}

func eachJSONFile(dir string, fn func(path string, data []byte)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read export dir %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("Warning: failed to read %s: %v", path, err)
			continue
		}
		fn(path, data)
	}

	return nil
}
