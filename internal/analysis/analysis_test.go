package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issuesByRule(report Report, rule string) []Issue {
	var out []Issue
	for _, i := range report.Issues {
		if i.Rule == rule {
			out = append(out, i)
		}
	}
	return out
}

func TestUnsafeFunctionDetected(t *testing.T) {
	code := `#include <cstring>
int main() {
    char buf[8];
    strcpy(buf, "too long for the buffer");
    return 0;
}
`
	report := New().Analyze(code)
	issues := issuesByRule(report, "unsafe-function")
	require.Len(t, issues, 1)
	assert.Equal(t, 4, issues[0].Line)
	assert.Equal(t, SeverityError, issues[0].Severity)
	assert.Contains(t, issues[0].Message, "strcpy")
}

func TestMemoryBalance(t *testing.T) {
	t.Run("new without delete", func(t *testing.T) {
		code := "int main() {\n    int* p = new int[10];\n    return 0;\n}\n"
		report := New().Analyze(code)
		issues := issuesByRule(report, "memory-balance")
		require.Len(t, issues, 1)
		assert.Equal(t, 2, issues[0].Line)
	})

	t.Run("balanced pair is clean", func(t *testing.T) {
		code := "int main() {\n    int* p = new int;\n    delete p;\n    return 0;\n}\n"
		report := New().Analyze(code)
		assert.Empty(t, issuesByRule(report, "memory-balance"))
	})
}

func TestEndlInLoop(t *testing.T) {
	code := `#include <iostream>
int main() {
    for (int i = 0; i < 100; i++) {
        std::cout << i << std::endl;
    }
    std::cout << "done" << std::endl;
    return 0;
}
`
	report := New().Analyze(code)
	issues := issuesByRule(report, "endl-in-loop")
	require.Len(t, issues, 1, "only the endl inside the loop should fire")
	assert.Equal(t, 4, issues[0].Line)
}

func TestStringConcatInLoop(t *testing.T) {
	code := `#include <string>
int main() {
    std::string s;
    while (s.size() < 1000) {
        s += "x";
    }
    return 0;
}
`
	report := New().Analyze(code)
	assert.NotEmpty(t, issuesByRule(report, "string-concat-in-loop"))
}

func TestUsingNamespaceStd(t *testing.T) {
	code := "#include <iostream>\nusing namespace std;\nint main() { return 0; }\n"
	report := New().Analyze(code)
	issues := issuesByRule(report, "using-namespace-std")
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Line)
}

func TestSystemCallFlagged(t *testing.T) {
	code := "#include <cstdlib>\nint main() { system(\"ls\"); return 0; }\n"
	report := New().Analyze(code)
	assert.NotEmpty(t, issuesByRule(report, "system-call"))
}

func TestMetrics(t *testing.T) {
	code := `// entry point
/* block
   comment */
#include <iostream>

int main() {
    return 0;
}
`
	m := computeMetrics(code)
	assert.Equal(t, 3, m.CommentLines)
	// One deliberate blank line plus the empty split element after the
	// trailing newline.
	assert.Equal(t, 2, m.BlankLines)
	assert.GreaterOrEqual(t, m.Functions, 1)
	assert.Equal(t, strings.Count(code, "\n")+1, m.TotalLines)
}

func TestComplexityRating(t *testing.T) {
	simple := "int main() { return 0; }"
	assert.Equal(t, "low", estimateComplexity(simple).Rating)

	var b strings.Builder
	b.WriteString("int f(int x) {\n")
	for i := 0; i < 25; i++ {
		b.WriteString("    if (x > 0) { x--; }\n")
	}
	b.WriteString("    return x;\n}\n")
	assert.Equal(t, "high", estimateComplexity(b.String()).Rating)
}

func TestSuggestionsDeduplicated(t *testing.T) {
	code := `#include <cstring>
int main() {
    char a[8], b[8];
    strcpy(a, "x");
    strcpy(b, "y");
    return 0;
}
`
	report := New().Analyze(code)
	require.Len(t, issuesByRule(report, "unsafe-function"), 2)
	// Two hits of the same rule contribute its suggestion once.
	count := 0
	for _, s := range report.Suggestions {
		if strings.Contains(s, "unsafe C string") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestCleanCodeHasNoIssues(t *testing.T) {
	code := `#include <iostream>
#include <vector>

int main() {
    std::vector<int> v{1, 2, 3};
    for (int x : v) {
        std::cout << x << '\n';
    }
    return 0;
}
`
	report := New().Analyze(code)
	assert.Empty(t, report.Issues)
}

func TestLineOf(t *testing.T) {
	code := "a\nb\nc"
	assert.Equal(t, 1, lineOf(code, 0))
	assert.Equal(t, 2, lineOf(code, 2))
	assert.Equal(t, 3, lineOf(code, 4))
	assert.Equal(t, 3, lineOf(code, 99))
}
