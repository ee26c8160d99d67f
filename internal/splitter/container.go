package splitter

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	containerMinIndicators  = 2
	containerSaturation     = 5
	containerBaseConfidence = 0.1
)

// ContainerSignals describes how much a block of text looks like an
// expense-report export wrapper rather than a transaction.
type ContainerSignals struct {
	IsExpensifyExport   bool
	ExpensifyConfidence float64
	ExpensifyReason     string
	ExpensifyIndicators []string
}

type containerIndicator struct {
	name  string
	match func(text, lower string) bool
}

func literal(needles ...string) func(string, string) bool {
	return func(_, lower string) bool {
		for _, n := range needles {
			if strings.Contains(lower, n) {
				return true
			}
		}
		return false
	}
}

func pattern(re *regexp.Regexp) func(string, string) bool {
	return func(text, _ string) bool {
		return re.MatchString(text)
	}
}

// Literal needles are lower-case and matched case-insensitively; regexes match as written.
var containerIndicators = []containerIndicator{
	{name: "Expensify brand mention", match: literal("expensify")},
	{name: "Expensify domain (expensify.com)", match: literal("expensify.com")},
	{name: "Created timestamp in UTC", match: pattern(regexp.MustCompile(`Created:[^\n]*\bUTC\b`))},
	{name: "Submitted timestamp in UTC", match: pattern(regexp.MustCompile(`Submitted:[^\n]*\bUTC\b`))},
	{name: "Approval record", match: pattern(regexp.MustCompile(`Approved[^\n]*\bUTC\b|Approved by`))},
	{name: "Exported to accounting system", match: pattern(regexp.MustCompile(`Exported to [A-Za-z0-9]`))},
	{name: "Expense report ID", match: pattern(regexp.MustCompile(`\bR00[A-Za-z0-9]{9}\b`))},
	{name: "Expense report phrase", match: literal("expense report")},
	{name: "Receipt thumbnails or preview images", match: literal("thumbnail", "preview image")},
}

// DetectContainer scores text against the known export-container signatures.
// Each indicator counts at most once.
func DetectContainer(text string) ContainerSignals {
	lower := strings.ToLower(text)

	indicators := []string{}
	for _, ind := range containerIndicators {
		if ind.match(text, lower) {
			indicators = append(indicators, ind.name)
		}
	}

	n := len(indicators)
	if n < containerMinIndicators {
		return ContainerSignals{
			ExpensifyConfidence: containerBaseConfidence,
			ExpensifyIndicators: indicators,
		}
	}

	return ContainerSignals{
		IsExpensifyExport:   true,
		ExpensifyConfidence: min(float64(n)/containerSaturation, 1.0),
		ExpensifyReason:     fmt.Sprintf("Matched %d container indicators: %s", n, strings.Join(indicators, ", ")),
		ExpensifyIndicators: indicators,
	}
}
