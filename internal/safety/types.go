package safety

// #region context
// Context is the incident context a fix is checked against.
type Context struct {
	FaultType string
	RootCause string
	Severity  string
}

// #endregion context

// #region result
// Result is the gate's verdict. The local engine and the remote
// validator both return this shape, so callers never know which ran.
type Result struct {
	Passed    bool            `json:"passed"`
	Score     float64         `json:"score"`
	Checks    map[string]bool `json:"checks"`
	Warnings  []string        `json:"warnings"`
	Reasoning string          `json:"reasoning"`
	Provider  string          `json:"provider"`
	Mode      string          `json:"mode"` // "local" or "api"
}

// #endregion result

// #region stats
// GateStats counts gate evaluations for the status endpoint.
type GateStats struct {
	ChecksRun    int     `json:"checks_run"`
	ChecksPassed int     `json:"checks_passed"`
	ChecksFailed int     `json:"checks_failed"`
	PassRate     float64 `json:"pass_rate"`
}

// #endregion stats
