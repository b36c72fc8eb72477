package cli

import "time"

// Flags holds all command-line flag values
type Flags struct {
	// General flags
	CfgFile    string
	OutputDir  string
	SessionID  string
	SessionDB  string
	ListModels bool
	Archive    bool

	// Backend flags
	APIURL     string
	ScoringURL string
	Timeout    time.Duration

	// Logging flags
	LogLevel  string
	LogFormat string

	// Export and explanation flags
	FontPath        string
	ExportFormat    string
	ExplainProvider string
	Explain         bool

	// Criteria flags
	ListCriteria bool

	// Run flags
	RunAudio   string
	RunWord    string
	RunWeights []string
	BatchFile  string
	RunExport  bool
}

// NewFlags creates a new Flags instance with default values
func NewFlags() *Flags {
	return &Flags{
		SessionID:       "default",
		APIURL:          "http://localhost:5000",
		Timeout:         30 * time.Second,
		LogLevel:        "warn",
		LogFormat:       "console",
		ExportFormat:    "pdf",
		ExplainProvider: "openai",
	}
}
