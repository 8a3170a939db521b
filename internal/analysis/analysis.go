// Package analysis is a heuristic text scanner for C++ source.
//
// This is deliberately not a parser and never will be: every check is a
// regular expression over raw source text, useful for quick hints in the
// playground UI, useless as ground truth. Real diagnostics come from the
// compiler via the engine. The rule set is pluggable so checks can be added
// without touching the scanning machinery.
package analysis

import (
	"strings"
	"time"
)

// Severity levels for reported issues.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Issue is one heuristic finding, anchored to a source line.
type Issue struct {
	Rule       string `json:"rule"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Category   string `json:"category"`
	Line       int    `json:"line"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Metrics are simple line-count statistics.
type Metrics struct {
	TotalLines   int `json:"total_lines"`
	CodeLines    int `json:"code_lines"`
	CommentLines int `json:"comment_lines"`
	BlankLines   int `json:"blank_lines"`
	Functions    int `json:"functions"`
	Classes      int `json:"classes"`
}

// Complexity is a rough cyclomatic estimate from branch-keyword counting.
type Complexity struct {
	Score  int    `json:"score"`
	Rating string `json:"rating"` // "low", "moderate", "high"
}

// Report is the full analysis result.
type Report struct {
	Metrics     Metrics       `json:"metrics"`
	Issues      []Issue       `json:"issues"`
	Suggestions []string      `json:"suggestions"`
	Complexity  Complexity    `json:"complexity"`
	Duration    time.Duration `json:"-"`
}

// Analyzer runs a set of rules over source text.
type Analyzer struct {
	rules []Rule
}

// New returns an Analyzer with the default rule set.
func New() *Analyzer {
	return &Analyzer{rules: defaultRules()}
}

// NewWithRules returns an Analyzer with a custom rule set.
func NewWithRules(rules []Rule) *Analyzer {
	return &Analyzer{rules: rules}
}

// Analyze scans the source and returns metrics, issues and suggestions.
func (a *Analyzer) Analyze(code string) Report {
	start := time.Now()

	report := Report{
		Metrics:     computeMetrics(code),
		Issues:      []Issue{},
		Suggestions: []string{},
		Complexity:  estimateComplexity(code),
	}

	for _, rule := range a.rules {
		for _, v := range rule.Check(code) {
			report.Issues = append(report.Issues, Issue{
				Rule:       rule.ID,
				Message:    v.Message,
				Severity:   rule.Severity,
				Category:   rule.Category,
				Line:       v.Line,
				Suggestion: rule.Suggestion,
			})
		}
	}

	report.Suggestions = buildSuggestions(report.Issues, report.Complexity)
	report.Duration = time.Since(start)
	return report
}

// lineOf converts a byte offset into a 1-based line number.
func lineOf(code string, offset int) int {
	if offset > len(code) {
		offset = len(code)
	}
	return strings.Count(code[:offset], "\n") + 1
}

func computeMetrics(code string) Metrics {
	var m Metrics
	inBlockComment := false

	for _, raw := range strings.Split(code, "\n") {
		m.TotalLines++
		line := strings.TrimSpace(raw)

		switch {
		case line == "":
			m.BlankLines++
		case inBlockComment:
			m.CommentLines++
			if strings.Contains(line, "*/") {
				inBlockComment = false
			}
		case strings.HasPrefix(line, "//"):
			m.CommentLines++
		case strings.HasPrefix(line, "/*"):
			m.CommentLines++
			inBlockComment = !strings.Contains(line, "*/")
		default:
			m.CodeLines++
		}
	}

	m.Functions = len(functionPattern.FindAllString(code, -1))
	m.Classes = len(classPattern.FindAllString(code, -1))
	return m
}

func estimateComplexity(code string) Complexity {
	score := 1
	for _, kw := range branchKeywords {
		score += len(kw.FindAllString(code, -1))
	}
	rating := "low"
	switch {
	case score > 20:
		rating = "high"
	case score > 10:
		rating = "moderate"
	}
	return Complexity{Score: score, Rating: rating}
}

func buildSuggestions(issues []Issue, cx Complexity) []string {
	suggestions := []string{}
	seen := map[string]bool{}
	for _, issue := range issues {
		if issue.Suggestion != "" && !seen[issue.Suggestion] {
			suggestions = append(suggestions, issue.Suggestion)
			seen[issue.Suggestion] = true
		}
	}
	if cx.Rating == "high" {
		suggestions = append(suggestions,
			"Consider splitting complex logic into smaller functions")
	}
	return suggestions
}
