package safety

// #region imports
import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
)

// #endregion imports

// #region critical-patterns

// Critical categories are binary: any hit fails the whole gate.

type patternRule struct {
	pattern string
	desc    string
}

var destructivePatterns = []patternRule{
	{"rm -rf /", "Recursive root deletion"},
	{"rm -rf", "Recursive force deletion"},
	{"drop table", "SQL table deletion"},
	{"drop database", "Database deletion"},
	{"truncate", "Data truncation"},
	{"format c:", "Disk format"},
	{"fdisk", "Disk partitioning"},
	{"mkfs", "Filesystem creation"},
	{"dd if=/dev/zero", "Disk zeroing"},
	{":(){ :|:& };:", "Fork bomb"},
	{"> /dev/sda", "Direct disk write"},
	{"chmod -r 777 /", "Recursive permission change"},
}

var dataLossPatterns = []patternRule{
	{"delete from", "SQL row deletion"},
	{"drop ", "SQL object deletion"},
	{"truncate ", "Table truncation"},
	{"remove all", "Bulk removal"},
	{"purge", "Data purge"},
	{"wipe", "Data wipe"},
	{"destroy", "Resource destruction"},
}

var securityPatterns = []patternRule{
	{"chmod 777", "World-writable permissions"},
	{"chmod 666", "World-writable file"},
	{"password=", "Hardcoded password"},
	{"secret=", "Hardcoded secret"},
	{"disable_auth", "Authentication disabled"},
	{"allow_all", "Allow-all policy"},
	{"skip-grant-tables", "MySQL privilege bypass"},
	{"eval(", "Code injection via eval"},
	{"exec(", "Code injection via exec"},
	{"__import__", "Dynamic import (potential RCE)"},
}

type regexpRule struct {
	re   *regexp.Regexp
	desc string
}

var credentialPatterns = []regexpRule{
	{regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`), "Email address"},
	{regexp.MustCompile(`(?i)sk-[a-z0-9]{20,}`), "API key pattern"},
	{regexp.MustCompile(`(?i)-----BEGIN (RSA |EC )?PRIVATE KEY`), "Private key"},
	{regexp.MustCompile(`(?i)aws_secret_access_key`), "AWS secret"},
	{regexp.MustCompile(`(?i)akia[0-9a-z]{16}`), "AWS access key"},
	{regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`), "SSN pattern"},
}

// #endregion critical-patterns

// #region advisory-patterns

// Advisory categories only nudge the score, never flip the verdict.

var rollbackIndicators = []string{"backup", "restore", "revert", "rollback", ".bak", "undo"}

// coherenceKeywords lists the words a fix is expected to mention for
// each fault type.
var coherenceKeywords = map[string][]string{
	"crash":      {"restart", "start", "process", "run"},
	"bad_config": {"config", "json", "restore", "backup"},
	"bug":        {"handler", "fix", "restore", "revert", "code"},
	"slow":       {"sleep", "remove", "handler", "restore", "timeout"},
}

var multiFilePatterns = []string{"find /", "sed -i", "for file in", "glob.glob"}

// #endregion advisory-patterns

// #region check-names

var criticalChecks = []string{
	"no_destructive_commands", "no_data_loss", "no_security_regression", "no_credential_exposure",
}
var advisoryChecks = []string{"rollback_possible", "fix_fault_coherence", "minimal_scope"}

// #endregion check-names

// #region gate-struct

// Gate is the local safety rule engine. Pure apart from its counters:
// the same (context, fix) pair always yields the same verdict and score.
type Gate struct {
	mu           sync.Mutex
	checksRun    int
	checksPassed int
	checksFailed int
}

// NewGate creates a local safety gate.
func NewGate() *Gate {
	return &Gate{}
}

// #endregion gate-struct

// #region check

// Check runs every rule category over the fix text. Critical checks
// are evaluated first and any failure fails the gate; advisory checks
// only contribute to the score.
func (g *Gate) Check(ctx Context, fixText string) Result {
	fixLower := strings.ToLower(fixText)
	checks := make(map[string]bool, len(criticalChecks)+len(advisoryChecks))
	var warnings []string

	// Critical pass
	checks["no_destructive_commands"] = true
	for _, p := range destructivePatterns {
		if strings.Contains(fixLower, p.pattern) {
			checks["no_destructive_commands"] = false
			warnings = append(warnings, fmt.Sprintf("Destructive command: %s (%s)", p.desc, p.pattern))
		}
	}

	checks["no_data_loss"] = true
	for _, p := range dataLossPatterns {
		if strings.Contains(fixLower, p.pattern) {
			checks["no_data_loss"] = false
			warnings = append(warnings, fmt.Sprintf("Potential data loss: %s", p.desc))
		}
	}

	checks["no_security_regression"] = true
	for _, p := range securityPatterns {
		if strings.Contains(fixLower, p.pattern) {
			checks["no_security_regression"] = false
			warnings = append(warnings, fmt.Sprintf("Security concern: %s", p.desc))
		}
	}

	checks["no_credential_exposure"] = true
	for _, p := range credentialPatterns {
		if p.re.MatchString(fixText) {
			checks["no_credential_exposure"] = false
			warnings = append(warnings, fmt.Sprintf("Credential/PII exposure: %s", p.desc))
		}
	}

	// Advisory pass
	hasRollback := false
	for _, ind := range rollbackIndicators {
		if strings.Contains(fixLower, ind) {
			hasRollback = true
			break
		}
	}
	// A plain restart is inherently rollback-safe.
	checks["rollback_possible"] = hasRollback || ctx.FaultType == "crash"

	expected := coherenceKeywords[ctx.FaultType]
	if len(expected) == 0 {
		checks["fix_fault_coherence"] = true
	} else {
		checks["fix_fault_coherence"] = false
		for _, kw := range expected {
			if strings.Contains(fixLower, kw) {
				checks["fix_fault_coherence"] = true
				break
			}
		}
		if !checks["fix_fault_coherence"] {
			warnings = append(warnings, fmt.Sprintf("Fix may not match fault type %q", ctx.FaultType))
		}
	}

	checks["minimal_scope"] = true
	for _, p := range multiFilePatterns {
		if strings.Contains(fixLower, p) {
			checks["minimal_scope"] = false
			warnings = append(warnings, fmt.Sprintf("Fix may affect multiple files: %q", p))
		}
	}

	// Score: critical checks are binary, advisory checks scale the rest.
	criticalPassed := true
	for _, name := range criticalChecks {
		if !checks[name] {
			criticalPassed = false
		}
	}
	advisoryPassed := 0
	for _, name := range advisoryChecks {
		if checks[name] {
			advisoryPassed++
		}
	}
	advisoryFraction := float64(advisoryPassed) / float64(len(advisoryChecks))

	base := 0.2
	if criticalPassed {
		base = 1.0
	}
	score := math.Round(base*(0.7+0.3*advisoryFraction)*1000) / 1000

	g.count(criticalPassed)

	return Result{
		Passed:    criticalPassed,
		Score:     score,
		Checks:    checks,
		Warnings:  warnings,
		Reasoning: buildReasoning(ctx, checks, warnings, score, criticalPassed),
		Provider:  "local-rule-engine",
		Mode:      "local",
	}
}

// #endregion check

// #region reasoning

func buildReasoning(ctx Context, checks map[string]bool, warnings []string, score float64, passed bool) string {
	verdict := "UNSAFE"
	if passed {
		verdict = "SAFE"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Safety analysis (local engine)\n")
	fmt.Fprintf(&b, "Fault type: %s | Severity: %s\n", ctx.FaultType, ctx.Severity)
	fmt.Fprintf(&b, "Overall score: %.0f%% | Verdict: %s\n\nChecks:\n", score*100, verdict)
	for _, name := range append(append([]string{}, criticalChecks...), advisoryChecks...) {
		mark := "FAIL"
		if checks[name] {
			mark = "ok"
		}
		fmt.Fprintf(&b, "  [%s] %s\n", mark, name)
	}
	if len(warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}
	return b.String()
}

// #endregion reasoning

// #region stats

// count tallies one evaluation. The remote checker reports its
// verdicts here too, so stats cover both paths.
func (g *Gate) count(passed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checksRun++
	if passed {
		g.checksPassed++
	} else {
		g.checksFailed++
	}
}

// Stats returns the gate's evaluation counters.
func (g *Gate) Stats() GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := GateStats{
		ChecksRun:    g.checksRun,
		ChecksPassed: g.checksPassed,
		ChecksFailed: g.checksFailed,
	}
	if g.checksRun > 0 {
		st.PassRate = math.Round(float64(g.checksPassed)/float64(g.checksRun)*100) / 100
	}
	return st
}

// #endregion stats
