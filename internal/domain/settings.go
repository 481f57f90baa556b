package domain

// SearchLevel is the operator-configured retrieval strictness knob: it trades
// breadth (more chunks, lower rank threshold) against precision.
type SearchLevel string

const (
	SearchLevelLow    SearchLevel = "low"
	SearchLevelMedium SearchLevel = "medium"
	SearchLevelHigh   SearchLevel = "high"
)

// RAGSettings is the process-wide retrieval configuration. It is stored as a
// singleton row and loaded once per chat request; callers receive it by value
// so a request always sees one consistent snapshot.
type RAGSettings struct {
	SearchLevel       SearchLevel
	UseLegacyFallback bool
}

// DefaultRAGSettings applies when the settings row has never been written.
func DefaultRAGSettings() RAGSettings {
	return RAGSettings{
		SearchLevel:       SearchLevelMedium,
		UseLegacyFallback: true,
	}
}

// RetrievalConfig is the per-level chunk retrieval tuning derived from the
// search level.
type RetrievalConfig struct {
	TopK    int
	MinRank float64
}

// RetrievalConfig maps the level onto chunk-search breadth and the minimum
// rank a scored hybrid result must reach to survive filtering.
func (l SearchLevel) RetrievalConfig() RetrievalConfig {
	switch l {
	case SearchLevelLow:
		return RetrievalConfig{TopK: 4, MinRank: 0.16}
	case SearchLevelHigh:
		return RetrievalConfig{TopK: 12, MinRank: 0.03}
	default:
		return RetrievalConfig{TopK: 8, MinRank: 0.08}
	}
}

// MaxCandidates is the notice-recommendation cut for the level.
func (l SearchLevel) MaxCandidates() int {
	switch l {
	case SearchLevelLow:
		return 3
	case SearchLevelHigh:
		return 6
	default:
		return 4
	}
}

// IsValidSearchLevel reports whether s is a known level.
func IsValidSearchLevel(s SearchLevel) bool {
	switch s {
	case SearchLevelLow, SearchLevelMedium, SearchLevelHigh:
		return true
	}
	return false
}
