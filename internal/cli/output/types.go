package output

// CheckOutput is the JSON output of the check command.
type CheckOutput struct {
	Config  []CheckDiagnostic `json:"config,omitempty"`
	Files   []CheckFile       `json:"files"`
	Summary CheckSummary      `json:"summary"`
}

// CheckFile holds the diagnostics of one file.
type CheckFile struct {
	Path        string            `json:"path"`
	Diagnostics []CheckDiagnostic `json:"diagnostics"`
}

// CheckDiagnostic is one diagnostic. Lines and columns are 1-based; zero
// means the diagnostic has no position.
type CheckDiagnostic struct {
	Category  string   `json:"category"`
	Severity  string   `json:"severity"`
	Message   string   `json:"message"`
	Detail    string   `json:"detail,omitempty"`
	Line      int      `json:"line,omitempty"`
	Column    int      `json:"column,omitempty"`
	EndLine   int      `json:"end_line,omitempty"`
	EndColumn int      `json:"end_column,omitempty"`
	URL       string   `json:"url,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// CheckSummary counts diagnostics by severity.
type CheckSummary struct {
	Files    int `json:"files"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
	Hints    int `json:"hints"`
}

// Total returns the number of diagnostics.
func (s CheckSummary) Total() int {
	return s.Errors + s.Warnings + s.Info + s.Hints
}

// RuleInfo describes a rule for the rules command.
type RuleInfo struct {
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	Group       string   `json:"group"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Recommended bool     `json:"recommended"`
	Enabled     bool     `json:"enabled"`
	Sources     []string `json:"sources,omitempty"`
	ConfigKeys  []string `json:"config_keys,omitempty"`
	Rationale   string   `json:"rationale,omitempty"`
	BadExample  string   `json:"bad_example,omitempty"`
	GoodExample string   `json:"good_example,omitempty"`
	Fix         string   `json:"fix,omitempty"`
	URL         string   `json:"url,omitempty"`
}

// RulesOutput is the JSON output of the rules command.
type RulesOutput struct {
	Rules []RuleInfo `json:"rules"`
	Count struct {
		Total   int `json:"total"`
		Enabled int `json:"enabled"`
	} `json:"count"`
}
