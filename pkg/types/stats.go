package types

// Counters is the set of counters tracked at every scope.
type Counters struct {
	TotalFiles   int `json:"total_files" yaml:"total_files"`
	ScannedFiles int `json:"scanned_files" yaml:"scanned_files"`
	ErrorFiles   int `json:"error_files" yaml:"error_files"`
	IssuesFound  int `json:"issues_found" yaml:"issues_found"`
	SkippedFiles int `json:"skipped_files" yaml:"skipped_files"`
}

// Statistics holds counters at global, per-dialect and per-version scope.
type Statistics struct {
	Counters  `json:",inline" yaml:",inline"`
	ByDialect map[Dialect]Counters `json:"by_db_type" yaml:"by_db_type"`
	ByVersion map[string]Counters  `json:"by_version" yaml:"by_version"`
}

// NewStatistics returns an empty statistics tree.
func NewStatistics() Statistics {
	return Statistics{
		ByDialect: make(map[Dialect]Counters),
		ByVersion: make(map[string]Counters),
	}
}

// Clone returns a deep copy of the tree.
func (s Statistics) Clone() Statistics {
	out := Statistics{
		Counters:  s.Counters,
		ByDialect: make(map[Dialect]Counters, len(s.ByDialect)),
		ByVersion: make(map[string]Counters, len(s.ByVersion)),
	}
	for k, v := range s.ByDialect {
		out.ByDialect[k] = v
	}
	for k, v := range s.ByVersion {
		out.ByVersion[k] = v
	}
	return out
}
