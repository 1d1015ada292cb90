package agentloop

// Mode selects how an audit talks to the backend. It is chosen once per run.
type Mode string

const (
	// ModeSingleCall embeds every file in one prompt and parses JSON lines.
	ModeSingleCall Mode = "single_call"
	// ModeIterative lets the model explore the repository with tools.
	ModeIterative Mode = "iterative"
)

// Config holds the thresholds and backend parameters of one audit.
type Config struct {
	Mode                Mode     `json:"mode"`
	Model               string   `json:"model"`
	Provider            string   `json:"provider,omitempty"`
	Temperature         float64  `json:"temperature"`
	MaxIterations       int      `json:"max_iterations"`
	MaxContextMessages  int      `json:"max_context_messages"` // excluding the two anchors
	MaxToolOutput       int      `json:"max_tool_output"`      // bytes per tool outcome
	StrongNudgeAfter    int      `json:"strong_nudge_after"`
	AbandonAfter        int      `json:"abandon_after"`
	CompletionWords     []string `json:"completion_words"`
	EnableLoopDetection bool     `json:"enable_loop_detection"`
	LoopDetectionWindow int      `json:"loop_detection_window"`
	RepositoryName      string   `json:"repository_name,omitempty"`
	ExtraInstructions   string   `json:"extra_instructions,omitempty"` // appended last to the system prompt
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		Mode:                ModeSingleCall,
		Model:               "llama3.2:latest",
		Provider:            "ollama",
		Temperature:         0.1,
		MaxIterations:       200,
		MaxContextMessages:  50,
		MaxToolOutput:       DefaultMaxToolOutput,
		StrongNudgeAfter:    3,
		AbandonAfter:        5,
		CompletionWords:     []string{"complete", "completed", "finished", "done"},
		EnableLoopDetection: false,
		LoopDetectionWindow: 10,
	}
}

// withDefaults fills zero thresholds from DefaultConfig so a partially
// populated Config still terminates.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxContextMessages <= 0 {
		c.MaxContextMessages = d.MaxContextMessages
	}
	if c.MaxToolOutput <= 0 {
		c.MaxToolOutput = d.MaxToolOutput
	}
	if c.StrongNudgeAfter <= 0 {
		c.StrongNudgeAfter = d.StrongNudgeAfter
	}
	if c.AbandonAfter <= 0 {
		c.AbandonAfter = d.AbandonAfter
	}
	if c.CompletionWords == nil {
		c.CompletionWords = d.CompletionWords
	}
	if c.LoopDetectionWindow <= 0 {
		c.LoopDetectionWindow = d.LoopDetectionWindow
	}
	return c
}
