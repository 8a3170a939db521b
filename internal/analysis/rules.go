package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// Violation is one hit of a rule in the source.
type Violation struct {
	Message string
	Line    int
}

// Rule is a single heuristic check. Check receives the full source and
// returns every location where the rule fires.
type Rule struct {
	ID         string
	Severity   string
	Category   string
	Suggestion string
	Check      func(code string) []Violation
}

var (
	functionPattern = regexp.MustCompile(`(?m)^\s*[\w:<>,\s*&]+\s+(\w+)\s*\([^;{]*\)\s*(const\s*)?\{`)
	classPattern    = regexp.MustCompile(`(?m)^\s*(class|struct)\s+\w+`)

	branchKeywords = []*regexp.Regexp{
		regexp.MustCompile(`\bif\s*\(`),
		regexp.MustCompile(`\belse\b`),
		regexp.MustCompile(`\bfor\s*\(`),
		regexp.MustCompile(`\bwhile\s*\(`),
		regexp.MustCompile(`\bcase\s`),
		regexp.MustCompile(`\bcatch\s*\(`),
		regexp.MustCompile(`&&`),
		regexp.MustCompile(`\|\|`),
	}

	newPattern    = regexp.MustCompile(`\bnew\s+[\w:<>]+`)
	deletePattern = regexp.MustCompile(`\bdelete(\[\])?\s`)

	unsafeFuncPattern = regexp.MustCompile(`\b(gets|strcpy|strcat|sprintf|scanf|strtok)\s*\(`)

	usingNamespacePattern = regexp.MustCompile(`using\s+namespace\s+std\s*;`)

	endlPattern = regexp.MustCompile(`std::endl|[^\w]endl\b`)

	systemCallPattern = regexp.MustCompile(`\b(system|popen|exec[lv]p?e?)\s*\(`)

	loopHeaderPattern = regexp.MustCompile(`\b(for|while)\s*\(`)
)

func defaultRules() []Rule {
	return []Rule{
		{
			ID:         "memory-balance",
			Severity:   SeverityWarning,
			Category:   "memory",
			Suggestion: "Prefer std::unique_ptr / std::vector over raw new and delete",
			Check:      checkMemoryBalance,
		},
		{
			ID:         "unsafe-function",
			Severity:   SeverityError,
			Category:   "security",
			Suggestion: "Replace unsafe C string functions with std::string or bounded variants",
			Check:      checkUnsafeFunctions,
		},
		{
			ID:         "system-call",
			Severity:   SeverityWarning,
			Category:   "security",
			Check:      checkSystemCalls,
		},
		{
			ID:         "using-namespace-std",
			Severity:   SeverityInfo,
			Category:   "style",
			Suggestion: "Avoid `using namespace std;` at global scope",
			Check:      checkUsingNamespace,
		},
		{
			ID:         "endl-in-loop",
			Severity:   SeverityInfo,
			Category:   "performance",
			Suggestion: "Use '\\n' instead of std::endl inside loops to avoid repeated flushes",
			Check:      checkEndlInLoop,
		},
		{
			ID:         "string-concat-in-loop",
			Severity:   SeverityInfo,
			Category:   "performance",
			Suggestion: "Accumulate with std::ostringstream or reserve capacity before concatenating in a loop",
			Check:      checkStringConcatInLoop,
		},
	}
}

// checkMemoryBalance flags when the counts of new and delete differ. A pure
// count is blunt — it cannot see ownership transfer — but a mismatch in a
// small snippet is almost always a leak or double free.
func checkMemoryBalance(code string) []Violation {
	news := newPattern.FindAllStringIndex(code, -1)
	deletes := deletePattern.FindAllStringIndex(code, -1)
	if len(news) == len(deletes) {
		return nil
	}
	line := 1
	if len(news) > 0 {
		line = lineOf(code, news[0][0])
	} else if len(deletes) > 0 {
		line = lineOf(code, deletes[0][0])
	}
	return []Violation{{
		Message: fmt.Sprintf("%d new expression(s) but %d delete(s) — possible leak or double free", len(news), len(deletes)),
		Line:    line,
	}}
}

func checkUnsafeFunctions(code string) []Violation {
	var out []Violation
	for _, m := range unsafeFuncPattern.FindAllStringSubmatchIndex(code, -1) {
		name := code[m[2]:m[3]]
		out = append(out, Violation{
			Message: fmt.Sprintf("call to %s() has no bounds checking", name),
			Line:    lineOf(code, m[0]),
		})
	}
	return out
}

func checkSystemCalls(code string) []Violation {
	var out []Violation
	for _, m := range systemCallPattern.FindAllStringSubmatchIndex(code, -1) {
		name := code[m[2]:m[3]]
		out = append(out, Violation{
			Message: fmt.Sprintf("%s() spawns external processes; it is blocked in the sandbox", name),
			Line:    lineOf(code, m[0]),
		})
	}
	return out
}

func checkUsingNamespace(code string) []Violation {
	var out []Violation
	for _, m := range usingNamespacePattern.FindAllStringIndex(code, -1) {
		out = append(out, Violation{
			Message: "using namespace std pollutes the global namespace",
			Line:    lineOf(code, m[0]),
		})
	}
	return out
}

// loopBodies returns the text span of every for/while body, found by brace
// matching from the loop header. Single-statement bodies without braces are
// approximated by the rest of the header line plus the next line.
func loopBodies(code string) [][2]int {
	var bodies [][2]int
	for _, m := range loopHeaderPattern.FindAllStringIndex(code, -1) {
		open := strings.IndexByte(code[m[1]:], '{')
		if open < 0 {
			end := strings.IndexByte(code[m[1]:], '\n')
			if end < 0 {
				end = len(code) - m[1]
			} else if next := strings.IndexByte(code[m[1]+end+1:], '\n'); next >= 0 {
				end += next + 1
			}
			bodies = append(bodies, [2]int{m[1], m[1] + end})
			continue
		}
		start := m[1] + open
		depth := 0
		for i := start; i < len(code); i++ {
			switch code[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					bodies = append(bodies, [2]int{start, i + 1})
					i = len(code)
				}
			}
		}
	}
	return bodies
}

func checkEndlInLoop(code string) []Violation {
	return checkPatternInLoops(code, endlPattern, "std::endl inside a loop flushes the stream on every iteration")
}

var concatAssignPattern = regexp.MustCompile(`\w+\s*\+=\s*("|\w)`)

func checkStringConcatInLoop(code string) []Violation {
	return checkPatternInLoops(code, concatAssignPattern, "string concatenation inside a loop reallocates repeatedly")
}

func checkPatternInLoops(code string, p *regexp.Regexp, msg string) []Violation {
	var out []Violation
	seen := map[int]bool{}
	for _, body := range loopBodies(code) {
		for _, m := range p.FindAllStringIndex(code[body[0]:body[1]], -1) {
			line := lineOf(code, body[0]+m[0])
			if seen[line] {
				continue
			}
			seen[line] = true
			out = append(out, Violation{Message: msg, Line: line})
		}
	}
	return out
}
