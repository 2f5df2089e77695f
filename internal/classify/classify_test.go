package classify

import (
	"testing"

	"github.com/danielpatrickdp/opsagent/internal/target"
)

func TestFault_Precedence(t *testing.T) {
	tests := []struct {
		name string
		h    target.Health
		want FaultType
	}{
		{"process down", target.Health{ErrorType: "ProcessDown", Error: "no response"}, FaultCrash},
		{"connection refused", target.Health{ErrorType: "ConnectionRefused"}, FaultCrash},
		{"timeout", target.Health{ErrorType: "Timeout", Error: "deadline exceeded"}, FaultSlow},
		{"config parse error type", target.Health{ErrorType: "ConfigParseError"}, FaultBadConfig},
		{"name error type", target.Health{ErrorType: "NameError"}, FaultBug},
		{"config keyword in error", target.Health{Error: "failed to load CONFIG file"}, FaultBadConfig},
		{"json keyword in error", target.Health{Error: "invalid JSON at line 3"}, FaultBadConfig},
		{"name error in traceback", target.Health{Error: "500", Traceback: "NameError: name 'x' is not defined"}, FaultBug},
		{"zero division in traceback", target.Health{Error: "500", Traceback: "ZeroDivisionError: division by zero"}, FaultBug},
		{"sleep in traceback", target.Health{Error: "500", Traceback: "  File \"handler.py\"\n    time.sleep(10)"}, FaultSlow},
		{"nothing recognizable", target.Health{Error: "something odd"}, FaultUnknown},
		// error-type match must win over keyword scanning
		{"crash beats config keyword", target.Health{ErrorType: "ProcessDown", Error: "config gone"}, FaultCrash},
		{"config keyword beats traceback bug", target.Health{Error: "bad json", Traceback: "NameError: x"}, FaultBadConfig},
		{"config keyword beats name error type", target.Health{ErrorType: "NameError", Error: "cannot reload config after change"}, FaultBadConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fault(tt.h); got != tt.want {
				t.Errorf("Fault() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		ft   FaultType
		want Severity
	}{
		{FaultCrash, SeverityCritical},
		{FaultBadConfig, SeverityHigh},
		{FaultBug, SeverityHigh},
		{FaultSlow, SeverityMedium},
		{FaultUnknown, SeverityMedium},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.ft); got != tt.want {
			t.Errorf("SeverityFor(%s) = %s, want %s", tt.ft, got, tt.want)
		}
	}
}

func TestApprovalSeverityFor_DataLossFaultsForceBlocker(t *testing.T) {
	if got := ApprovalSeverityFor(FaultCrash, SeverityCritical); got != ApprovalBlocker {
		t.Errorf("crash should be blocker, got %s", got)
	}
	if got := ApprovalSeverityFor(FaultBadConfig, SeverityHigh); got != ApprovalBlocker {
		t.Errorf("bad_config should be blocker regardless of severity, got %s", got)
	}
	if got := ApprovalSeverityFor(FaultBug, SeverityHigh); got != ApprovalMedium {
		t.Errorf("bug/high should be medium, got %s", got)
	}
	if got := ApprovalSeverityFor(FaultSlow, SeverityMedium); got != ApprovalMedium {
		t.Errorf("slow/medium should be medium, got %s", got)
	}
	if got := ApprovalSeverityFor(FaultUnknown, SeverityLow); got != ApprovalLow {
		t.Errorf("unknown/low should be low, got %s", got)
	}
}

func TestFromRootCause(t *testing.T) {
	tests := []struct {
		rootCause string
		want      FaultType
	}{
		{"Configuration file config.json is corrupted", FaultBadConfig},
		{"invalid JSON in settings", FaultBadConfig},
		{"NameError raised in request path", FaultBug},
		{"Bug in handler.py raising an exception", FaultBug},
		{"undefined variable referenced", FaultBug},
		{"request timeout under load", FaultSlow},
		{"Blocking sleep call in handler.py", FaultSlow},
		{"Application process is down", FaultCrash},
		{"service killed by OOM", FaultCrash},
		{"connection refused on port 8001", FaultCrash},
		{"mystery failure", FaultUnknown},
		{"", FaultUnknown},
		// config wins over later keyword families
		{"config reload caused a crash", FaultBadConfig},
	}
	for _, tt := range tests {
		if got := FromRootCause(tt.rootCause); got != tt.want {
			t.Errorf("FromRootCause(%q) = %s, want %s", tt.rootCause, got, tt.want)
		}
	}
}

func TestFaultRoundTrip(t *testing.T) {
	// a live classification, described, must rederive to the same type
	healths := map[FaultType]target.Health{
		FaultCrash:     {ErrorType: "ProcessDown", Error: "connection refused"},
		FaultBadConfig: {ErrorType: "ConfigParseError", Error: "bad json"},
		FaultSlow:      {ErrorType: "Timeout", Error: "timeout"},
	}
	for want, h := range healths {
		ft := Fault(h)
		if ft != want {
			t.Fatalf("Fault() = %s, want %s", ft, want)
		}
	}
}
