// Package analytics keeps the search history log and derives statistics from it.
package analytics

import (
	"sort"
	"sync"
	"time"
)

// Analytics defaults.
const (
	DefaultWindow       = 100
	DefaultPopularLimit = 10
)

// Entry is one recorded search.
type Entry struct {
	Query       string    `json:"query"`
	Timestamp   time.Time `json:"timestamp"`
	ResultCount int       `json:"resultCount"`
	TopScore    float64   `json:"topScore"`
}

// PopularQuery is a query and how often it occurred in the window.
type PopularQuery struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// Summary is derived on demand from the history log.
type Summary struct {
	TotalSearches       int            `json:"totalSearches"`
	RecentSearches      int            `json:"recentSearches"`
	AverageResults      float64        `json:"averageResults"`
	SearchEffectiveness float64        `json:"searchEffectiveness"`
	PopularQueries      []PopularQuery `json:"popularQueries"`
}

// Options configure a Recorder. Zero values take the defaults.
// MaxHistory > 0 bounds the log to the newest MaxHistory entries.
type Options struct {
	Window       int
	PopularLimit int
	MaxHistory   int
}

// Recorder is an append-only search log guarded by a mutex.
type Recorder struct {
	mu           sync.Mutex
	entries      []Entry
	window       int
	popularLimit int
	maxHistory   int
}

// New creates a recorder.
func New(o Options) *Recorder {
	if o.Window <= 0 {
		o.Window = DefaultWindow
	}
	if o.PopularLimit <= 0 {
		o.PopularLimit = DefaultPopularLimit
	}
	if o.MaxHistory > 0 && o.MaxHistory < o.Window {
		o.MaxHistory = o.Window
	}
	return &Recorder{
		window:       o.Window,
		popularLimit: o.PopularLimit,
		maxHistory:   o.MaxHistory,
	}
}

// Record appends a search to the log.
func (r *Recorder) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, e)
	if r.maxHistory > 0 && len(r.entries) > r.maxHistory {
		// Copy down so the dropped prefix can be collected.
		kept := make([]Entry, r.maxHistory, r.maxHistory+r.maxHistory/2)
		copy(kept, r.entries[len(r.entries)-r.maxHistory:])
		r.entries = kept
	}
}

// Len returns the number of retained entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Recent returns up to n newest entries, newest first.
func (r *Recorder) Recent(n int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	n = min(max(n, 0), len(r.entries))
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = r.entries[len(r.entries)-1-i]
	}
	return out
}

// Summary computes statistics over the last Window entries.
func (r *Recorder) Summary() Summary {
	r.mu.Lock()
	total := len(r.entries)
	window := make([]Entry, min(r.window, total))
	copy(window, r.entries[total-len(window):])
	r.mu.Unlock()

	s := Summary{
		TotalSearches:  total,
		RecentSearches: len(window),
		PopularQueries: popular(window, r.popularLimit),
	}
	if len(window) == 0 {
		return s
	}

	var results, effective int
	for _, e := range window {
		results += e.ResultCount
		if e.ResultCount > 0 {
			effective++
		}
	}
	s.AverageResults = float64(results) / float64(len(window))
	s.SearchEffectiveness = float64(effective) / float64(len(window))
	return s
}

// popular counts queries verbatim and ranks by count, ties by first occurrence.
func popular(window []Entry, limit int) []PopularQuery {
	counts := make(map[string]int, len(window))
	order := make([]string, 0, len(window))
	for _, e := range window {
		if _, seen := counts[e.Query]; !seen {
			order = append(order, e.Query)
		}
		counts[e.Query]++
	}

	out := make([]PopularQuery, 0, len(order))
	for _, q := range order {
		out = append(out, PopularQuery{Query: q, Count: counts[q]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
