package corpus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadDir builds a snapshot from every JSON and YAML file in dir, keyed by
// file stem. Files that cannot be parsed are logged and skipped; only an
// unreadable directory is an error.
func LoadDir(dir string, logger *slog.Logger) (*Snapshot, error) {
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read corpus dir %s: %w", dir, err)
	}

	docs := make(map[string]any)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		key := strings.TrimSuffix(name, filepath.Ext(name))
		if _, dup := docs[key]; dup {
			logger.Warn("corpus.duplicate_key", "key", key, "file", name)
			continue
		}

		doc, err := loadFile(filepath.Join(dir, name), ext)
		if err != nil {
			logger.Warn("corpus.file_skipped", "file", name, "error", err)
			continue
		}
		docs[key] = doc
	}

	return New(docs, SourceStatic), nil
}

func loadFile(path, ext string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc any
	if ext == ".json" {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		return doc, nil
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	// Round-trip through JSON so YAML documents have the same shape as
	// JSON ones (map[string]any, float64 numbers).
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize yaml: %w", err)
	}
	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return nil, fmt.Errorf("normalize yaml: %w", err)
	}
	return normalized, nil
}

// Decode parses resource text the way provider resources are interpreted:
// JSON when it parses, the raw text otherwise.
func Decode(text string) any {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return text
	}
	return doc
}
