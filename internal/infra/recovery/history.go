package recovery

import (
	"sort"
	"sync"
	"time"

	"github.com/mikeoller82/codexa-sub000/internal/domain"
)

const topPatternLimit = 10

// Record is one classified failure and the decision taken for it.
type Record struct {
	Context  domain.ErrorContext
	Decision domain.RecoveryDecision
}

// PatternCount counts occurrences of a tool:kind pair.
type PatternCount struct {
	Pattern string `json:"pattern"`
	Count   int    `json:"count"`
}

// Stats summarizes the history. It is observability only.
type Stats struct {
	Total       int                          `json:"total"`
	Recent24h   int                          `json:"recent24h"`
	ByKind      map[domain.ErrorKind]int     `json:"byKind"`
	BySeverity  map[domain.Severity]int      `json:"bySeverity"`
	ByState     map[domain.RecoveryState]int `json:"byState"`
	TopPatterns []PatternCount               `json:"topPatterns"`
}

// History is a bounded ring buffer of recovery records.
type History struct {
	mu    sync.RWMutex
	buf   []Record
	start int
	size  int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = domain.DefaultHistorySize
	}
	return &History{buf: make([]Record, capacity)}
}

// Add appends a record, overwriting the oldest one when full.
func (h *History) Add(rec Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = rec
		h.size++
		return
	}
	h.buf[h.start] = rec
	h.start = (h.start + 1) % len(h.buf)
}

// Records returns the stored records, oldest first.
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.recordsLocked()
}

func (h *History) recordsLocked() []Record {
	out := make([]Record, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) Cap() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.buf)
}

// Resize changes the capacity, keeping the newest records.
func (h *History) Resize(capacity int) {
	if capacity <= 0 {
		capacity = domain.DefaultHistorySize
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if capacity == len(h.buf) {
		return
	}
	records := h.recordsLocked()
	if len(records) > capacity {
		records = records[len(records)-capacity:]
	}
	h.buf = make([]Record, capacity)
	copy(h.buf, records)
	h.start = 0
	h.size = len(records)
}

// FailuresSince counts records for tool newer than since.
func (h *History) FailuresSince(tool string, since time.Time) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for i := 0; i < h.size; i++ {
		rec := h.buf[(h.start+i)%len(h.buf)]
		if rec.Context.ToolName == tool && rec.Context.Timestamp.After(since) {
			count++
		}
	}
	return count
}

// Stats aggregates the history relative to now.
func (h *History) Stats(now time.Time) Stats {
	records := h.Records()
	stats := Stats{
		Total:      len(records),
		ByKind:     make(map[domain.ErrorKind]int),
		BySeverity: make(map[domain.Severity]int),
		ByState:    make(map[domain.RecoveryState]int),
	}
	patterns := make(map[string]int)
	dayAgo := now.Add(-24 * time.Hour)
	for _, rec := range records {
		stats.ByKind[rec.Context.Kind]++
		stats.BySeverity[rec.Context.Severity]++
		stats.ByState[rec.Decision.State]++
		patterns[rec.Context.ToolName+":"+string(rec.Context.Kind)]++
		if rec.Context.Timestamp.After(dayAgo) {
			stats.Recent24h++
		}
	}

	stats.TopPatterns = make([]PatternCount, 0, len(patterns))
	for pattern, count := range patterns {
		stats.TopPatterns = append(stats.TopPatterns, PatternCount{Pattern: pattern, Count: count})
	}
	sort.Slice(stats.TopPatterns, func(i, j int) bool {
		if stats.TopPatterns[i].Count != stats.TopPatterns[j].Count {
			return stats.TopPatterns[i].Count > stats.TopPatterns[j].Count
		}
		return stats.TopPatterns[i].Pattern < stats.TopPatterns[j].Pattern
	})
	if len(stats.TopPatterns) > topPatternLimit {
		stats.TopPatterns = stats.TopPatterns[:topPatternLimit]
	}
	return stats
}
