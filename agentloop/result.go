package agentloop

// Termination says why an audit stopped.
type Termination string

const (
	// TerminationFinished: the model called finish_analysis and the guard allowed it.
	TerminationFinished Termination = "finished"
	// TerminationCompleted: the model declared completion in text with issues on record.
	TerminationCompleted Termination = "completed"
	// TerminationAbandoned: too many consecutive turns without tool calls.
	TerminationAbandoned Termination = "abandoned"
	// TerminationExhausted: the iteration budget ran out.
	TerminationExhausted Termination = "iterations_exhausted"
	// TerminationSingleCall: the one single-call request was answered.
	TerminationSingleCall Termination = "single_call"
	// TerminationNoFiles: single-call mode found nothing to analyze.
	TerminationNoFiles Termination = "no_files"
)

// Result is the outcome of one audit. Abandonment and budget exhaustion are
// successful terminations carrying partial results.
type Result struct {
	SessionID   string          `json:"session_id"`
	Mode        Mode            `json:"mode"`
	Issues      []ReportedIssue `json:"issues"`
	Termination Termination     `json:"termination"`
	Iterations  int             `json:"iterations"`
	FilesRead   []string        `json:"files_read,omitempty"`

	// FilesReported counts distinct files with at least one reported issue.
	FilesReported int `json:"files_reported"`

	// TotalFiles is the number of files analyzed when known: the corpus size
	// in single-call mode, the files read in iterative mode.
	TotalFiles *int `json:"total_files,omitempty"`
}
