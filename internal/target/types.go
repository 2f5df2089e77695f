package target

// #region health
// Health is the monitored app's health report, normalized so the
// classifier sees the same shape whether the app answered, timed out,
// or refused the connection.
type Health struct {
	Healthy      bool   `json:"healthy"`
	Status       string `json:"status,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
	Detail       string `json:"detail,omitempty"`
	Traceback    string `json:"traceback,omitempty"`
	ResponseMS   int64  `json:"response_ms,omitempty"`
}

// #endregion health

// #region recovery
// RecoveryResult reports what the app's admin surface did to recover.
type RecoveryResult struct {
	Fixed        bool   `json:"fixed"`
	Action       string `json:"action,omitempty"`
	FileRestored string `json:"file_restored,omitempty"`
	Error        string `json:"error,omitempty"`
}

// InjectResult reports a demo fault injection.
type InjectResult struct {
	Fault        string `json:"fault"`
	Detail       string `json:"detail,omitempty"`
	FileModified string `json:"file_modified,omitempty"`
	Error        string `json:"error,omitempty"`
}

// #endregion recovery
