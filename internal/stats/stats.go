// Package stats records per-lookup metrics (time to first chunk, total time,
// response mode, prompt size, outcome) in ~/.wordpeek/stats.json and
// aggregates them for the stats command.
package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arin/wordpeek/internal/ai"
	"github.com/arin/wordpeek/internal/config"
)

const (
	fileName   = "stats.json"
	maxRecords = 1000
)

// Sources a lookup can run through.
const (
	SourceLocal  = "local"
	SourceDaemon = "daemon"
)

// Record is a single instrumented lookup.
type Record struct {
	Timestamp    time.Time `json:"timestamp"`
	Word         string    `json:"word"`
	Source       string    `json:"source,omitempty"`
	Mode         string    `json:"mode,omitempty"`
	FirstChunkMs int64     `json:"first_chunk_ms"`
	ElapsedMs    int64     `json:"elapsed_ms"`
	PromptTokens int       `json:"prompt_tokens,omitempty"`
	Chunks       int       `json:"chunks"`
	Success      bool      `json:"success"`
}

// FromSummary builds a record from a finished local session.
func FromSummary(word string, s ai.Summary, promptTokens int) Record {
	mode := ""
	if s.Mode != ai.ModeUnknown {
		mode = s.Mode.String()
	}
	return Record{
		Word:         word,
		Source:       SourceLocal,
		Mode:         mode,
		FirstChunkMs: s.FirstChunk.Milliseconds(),
		ElapsedMs:    s.Elapsed.Milliseconds(),
		PromptTokens: promptTokens,
		Chunks:       s.Chunks,
		Success:      s.Err == nil,
	}
}

// Summary is the aggregated stats dashboard.
type Summary struct {
	TotalLookups    int            `json:"total_lookups"`
	SuccessRate     float64        `json:"success_rate"`
	AvgFirstChunkMs int64          `json:"avg_first_chunk_ms"`
	AvgElapsedMs    int64          `json:"avg_elapsed_ms"`
	AvgPromptTokens int            `json:"avg_prompt_tokens"`
	ModeBreakdown   map[string]int `json:"mode_breakdown"`
	SourceBreakdown map[string]int `json:"source_breakdown"`
	TopWords        []WordCount    `json:"top_words"`
	TodayCount      int            `json:"today_count"`
	ThisWeekCount   int            `json:"this_week_count"`
}

// WordCount pairs a looked-up word with how often it was looked up.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

var fileMu sync.Mutex

func statsPath() string {
	return filepath.Join(config.Dir(), fileName)
}

// Save appends a new record to the stats file.
func Save(r Record) error {
	fileMu.Lock()
	defer fileMu.Unlock()

	r.Timestamp = time.Now()

	records, _ := loadAll()
	records = append(records, r)

	if len(records) > maxRecords {
		records = records[len(records)-maxRecords:]
	}

	if err := os.MkdirAll(config.Dir(), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(statsPath(), data, 0o600)
}

// LoadAll returns all stored records.
func LoadAll() ([]Record, error) {
	return loadAll()
}

func loadAll() ([]Record, error) {
	data, err := os.ReadFile(statsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Summarize computes aggregated stats from all records.
func Summarize() (*Summary, error) {
	records, err := loadAll()
	if err != nil {
		return nil, err
	}
	return summarize(records, time.Now()), nil
}

func summarize(records []Record, now time.Time) *Summary {
	s := &Summary{
		TotalLookups:    len(records),
		ModeBreakdown:   map[string]int{},
		SourceBreakdown: map[string]int{},
	}
	if len(records) == 0 {
		return s
	}

	var totalFirst, totalElapsed int64
	var firstCount, successCount, totalTokens int
	wordFreq := map[string]int{}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	weekAgo := now.AddDate(0, 0, -7)

	for _, r := range records {
		if r.Success {
			successCount++
		}
		// Failed lookups often never produce a chunk.
		if r.Chunks > 0 {
			totalFirst += r.FirstChunkMs
			firstCount++
		}
		totalElapsed += r.ElapsedMs
		totalTokens += r.PromptTokens
		if r.Mode != "" {
			s.ModeBreakdown[r.Mode]++
		}
		if r.Source != "" {
			s.SourceBreakdown[r.Source]++
		}
		if r.Word != "" {
			wordFreq[strings.ToLower(r.Word)]++
		}
		if !r.Timestamp.Before(today) {
			s.TodayCount++
		}
		if r.Timestamp.After(weekAgo) {
			s.ThisWeekCount++
		}
	}

	s.SuccessRate = float64(successCount) / float64(len(records)) * 100
	s.AvgElapsedMs = totalElapsed / int64(len(records))
	s.AvgPromptTokens = totalTokens / len(records)
	if firstCount > 0 {
		s.AvgFirstChunkMs = totalFirst / int64(firstCount)
	}
	s.TopWords = topN(wordFreq, 5)
	return s
}

func topN(freq map[string]int, n int) []WordCount {
	all := make([]WordCount, 0, len(freq))
	for w, count := range freq {
		all = append(all, WordCount{Word: w, Count: count})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Word < all[j].Word
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
