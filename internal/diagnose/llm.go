package diagnose

// #region imports
import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// #endregion imports

// #region config

type LLMConfig struct {
	APIKey string
	Model  string
}

func DefaultLLMConfig() LLMConfig {
	cfg := LLMConfig{
		APIKey: os.Getenv("OPENAI_API_KEY"),
		Model:  os.Getenv("OPENAI_MODEL"),
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	return cfg
}

// #endregion config

// #region engine

// LLMEngine asks a chat-completion model for structured diagnoses and
// fixes. Callers wrap it in an Adapter so any failure here degrades to
// the rule engine instead of stalling the pipeline.
type LLMEngine struct {
	client *openai.Client
	model  string
}

// NewLLMEngine returns nil when no API key is configured; the Adapter
// treats a nil engine as permanently unavailable.
func NewLLMEngine(cfg LLMConfig) *LLMEngine {
	if cfg.APIKey == "" {
		return nil
	}
	return &LLMEngine{client: openai.NewClient(cfg.APIKey), model: cfg.Model}
}

const systemPrompt = "You are an incident-response engineer. Answer with a single JSON object and nothing else."

func (e *LLMEngine) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// #endregion engine

// #region diagnose

func (e *LLMEngine) Diagnose(ctx context.Context, ev Evidence) (Diagnosis, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "A monitored web service is failing. Fault type: %s.\n\n", ev.FaultType)
	fmt.Fprintf(&b, "Health report: status=%s error=%q error_type=%q detail=%q response_ms=%d\n",
		ev.Health.Status, ev.Health.Error, ev.Health.ErrorType, ev.Health.Detail, ev.Health.ResponseMS)
	if ev.Health.Traceback != "" {
		fmt.Fprintf(&b, "\nTraceback:\n%s\n", ev.Health.Traceback)
	}
	if ev.Logs != "" {
		fmt.Fprintf(&b, "\nRecent logs:\n%s\n", tail(ev.Logs, 1500))
	}
	if ev.HandlerSource != "" {
		fmt.Fprintf(&b, "\nContents of %s:\n%s\n", ev.HandlerFile, ev.HandlerSource)
	}
	if ev.ConfigSource != "" {
		fmt.Fprintf(&b, "\nContents of %s:\n%s\n", ev.ConfigFile, ev.ConfigSource)
	}
	b.WriteString("\nDiagnose the root cause. Reply with JSON keys: " +
		`"root_cause", "explanation", "reasoning", "category" (one of crash|config|bug|performance|unknown), ` +
		`"file_at_fault", "line_hint".`)

	raw, err := e.complete(ctx, b.String())
	if err != nil {
		return Diagnosis{}, err
	}
	var d Diagnosis
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &d); err != nil {
		return Diagnosis{}, fmt.Errorf("parse diagnosis: %w", err)
	}
	if d.RootCause == "" {
		return Diagnosis{}, fmt.Errorf("parse diagnosis: missing root_cause")
	}
	if d.Category == "" {
		d.Category = "unknown"
	}
	return d, nil
}

// #endregion diagnose

// #region fix

func (e *LLMEngine) GenerateFix(ctx context.Context, d Diagnosis, ev Evidence) (FixProposal, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Root cause: %s\nCategory: %s\n", d.RootCause, d.Category)
	if d.FileAtFault != "" {
		fmt.Fprintf(&b, "File at fault: %s\n", d.FileAtFault)
	}
	if ev.HandlerSource != "" {
		fmt.Fprintf(&b, "\nCurrent contents of %s:\n%s\n", ev.HandlerFile, ev.HandlerSource)
	}
	if ev.ConfigSource != "" {
		fmt.Fprintf(&b, "\nCurrent contents of %s:\n%s\n", ev.ConfigFile, ev.ConfigSource)
	}
	b.WriteString("\nPropose a remediation. Reply with JSON keys: " +
		`"fix_description", "fix_diff", "fix_code", "test_code", "risk_level" (low|medium|high).`)

	raw, err := e.complete(ctx, b.String())
	if err != nil {
		return FixProposal{}, err
	}
	var f FixProposal
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &f); err != nil {
		return FixProposal{}, fmt.Errorf("parse fix: %w", err)
	}
	if f.Description == "" {
		return FixProposal{}, fmt.Errorf("parse fix: missing fix_description")
	}
	if f.RiskLevel == "" {
		f.RiskLevel = "medium"
	}
	return f, nil
}

// #endregion fix

// #region refine

func (e *LLMEngine) Refine(ctx context.Context, fix FixProposal, feedback string) (FixProposal, error) {
	prompt := fmt.Sprintf(
		"A reviewer requested changes to this proposed fix.\n\nCurrent fix: %s\nDiff:\n%s\n\nReviewer feedback: %s\n\n"+
			"Revise the fix to address the feedback. Reply with JSON keys: "+
			`"fix_description", "fix_diff", "fix_code", "test_code", "risk_level".`,
		fix.Description, fix.Diff, feedback)

	raw, err := e.complete(ctx, prompt)
	if err != nil {
		return FixProposal{}, err
	}
	var f FixProposal
	if err := json.Unmarshal([]byte(ExtractJSON(raw)), &f); err != nil {
		return FixProposal{}, fmt.Errorf("parse refined fix: %w", err)
	}
	if f.Description == "" {
		return FixProposal{}, fmt.Errorf("parse refined fix: missing fix_description")
	}
	if f.RiskLevel == "" {
		f.RiskLevel = fix.RiskLevel
	}
	return f, nil
}

// #endregion refine

// #region helpers

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// #endregion helpers
