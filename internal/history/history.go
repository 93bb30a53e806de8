// Package history keeps a log of past lookups in ~/.wordpeek/history.json.
package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arin/wordpeek/internal/config"
)

const (
	fileName   = "history.json"
	maxEntries = 500
)

// fileMu guards concurrent access to the history file.
var fileMu sync.Mutex

// Entry is one finished or failed lookup.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Word      string    `json:"word"`
	Context   string    `json:"context,omitempty"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	Mode      string    `json:"mode,omitempty"`
	Success   bool      `json:"success"`
}

func historyPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new entry to the history file.
func Save(entry Entry) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	entry.Timestamp = time.Now()

	entries, _ := loadAll()
	entries = append(entries, entry)

	if len(entries) > maxEntries {
		entries = entries[len(entries)-maxEntries:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(historyPath(), data, 0o600)
}

// Load returns the most recent n history entries. A limit of 0 returns all.
func Load(limit int) ([]Entry, error) {
	entries, err := loadAll()
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	return entries, nil
}

// Find returns the most recent n entries for word, compared case-insensitively.
func Find(word string, limit int) ([]Entry, error) {
	entries, err := loadAll()
	if err != nil {
		return nil, err
	}

	var matched []Entry
	for _, e := range entries {
		if strings.EqualFold(e.Word, word) {
			matched = append(matched, e)
		}
	}
	if limit > 0 && len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	return matched, nil
}

func loadAll() ([]Entry, error) {
	data, err := os.ReadFile(historyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	return entries, nil
}
