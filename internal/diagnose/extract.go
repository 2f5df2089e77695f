package diagnose

// #region imports
import "strings"

// #endregion imports

// #region extract

// ExtractJSON pulls a JSON object out of a model reply that may be
// wrapped in a markdown code fence or surrounded by prose. It returns
// the substring between the first '{' and the last '}', which is the
// object itself for well-formed replies.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "```"); i >= 0 {
		s = s[i+3:]
		s = strings.TrimPrefix(s, "json")
		if j := strings.Index(s, "```"); j >= 0 {
			s = s[:j]
		}
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// #endregion extract
