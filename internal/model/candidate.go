package model

// Heuristic names the reconstruction heuristic that produced a candidate.
type Heuristic string

const (
	// HeuristicDirect wraps final output strings.
	HeuristicDirect Heuristic = "direct"
	// HeuristicGrouped assembles fragments captured at the same depth and level.
	HeuristicGrouped Heuristic = "grouped"
	// HeuristicTailWindow rescans the last entries in execution order.
	HeuristicTailWindow Heuristic = "tail-window"
	// HeuristicContentToken scans free-form content tokens.
	HeuristicContentToken Heuristic = "content-token"
)

// Candidate is a scored reconstruction of the original source.
type Candidate struct {
	Text            string    `json:"text" yaml:"text"`
	Literal         string    `json:"literal" yaml:"literal"`
	Score           int       `json:"score" yaml:"score"`
	OriginHeuristic Heuristic `json:"origin" yaml:"origin"`
}

// Stats aggregates what a trace contained.
type Stats struct {
	Strings         int `json:"strings" yaml:"strings"`
	Functions       int `json:"functions" yaml:"functions"`
	Constants       int `json:"constants" yaml:"constants"`
	Instructions    int `json:"instructions" yaml:"instructions"`
	Entries         int `json:"entries" yaml:"entries"`
	FinalStrings    int `json:"final_strings" yaml:"final_strings"`
	ReadableStrings int `json:"readable_strings" yaml:"readable_strings"`
	SkippedLines    int `json:"skipped_lines" yaml:"skipped_lines"`
}
