package splitter

import (
	"fmt"
	"slices"
	"strings"

	"doc-splitter/internal/models"
)

const (
	reasonSinglePage    = "Single page document"
	reasonFirstDocument = "First document in PDF"
	reasonVisionSplit   = "Boundary detected via vision analysis"
	reasonTextGroup     = "Grouped via text analysis"
	reasonOmittedPages  = "Pages omitted by text analysis"
)

// emptyResult is the partition of a document without pages.
func emptyResult() models.PageAnalysisResult {
	return models.PageAnalysisResult{TotalInvoices: 0, PageGroups: []models.PageGroup{}}
}

func singlePageResult(page models.Page) models.PageAnalysisResult {
	return newResult([]models.PageGroup{
		newGroup([]models.Page{page}, 1.0, reasonSinglePage),
	})
}

// AssembleFromDecisions turns ordered pairwise verdicts into groups. decisions[i]
// must compare pages[i] and pages[i+1]. A boundary is accepted only for a
// "different document" verdict at or above cfg.BoundaryThreshold.
func AssembleFromDecisions(pages []models.Page, decisions []models.BoundaryDecision, cfg Config) (models.PageAnalysisResult, error) {
	cfg = cfg.withDefaults()

	switch len(pages) {
	case 0:
		return emptyResult(), nil
	case 1:
		return singlePageResult(pages[0]), nil
	}
	if len(decisions) != len(pages)-1 {
		return models.PageAnalysisResult{}, fmt.Errorf("got %d decisions for %d pages: %w", len(decisions), len(pages), ErrValidation)
	}

	boundaries := []int{0}
	for i, d := range decisions {
		if d.PageAIndex != i || d.PageBIndex != i+1 {
			return models.PageAnalysisResult{}, fmt.Errorf("decision %d compares %d and %d: %w", i, d.PageAIndex, d.PageBIndex, ErrValidation)
		}
		if !d.SameDocument && d.Confidence >= cfg.BoundaryThreshold {
			boundaries = append(boundaries, d.PageBIndex)
		}
	}

	groups := make([]models.PageGroup, 0, len(boundaries))
	for i, start := range boundaries {
		end := len(pages)
		if i+1 < len(boundaries) {
			end = boundaries[i+1]
		}
		reason := reasonVisionSplit
		if i == 0 {
			reason = reasonFirstDocument
		}
		groups = append(groups, newGroup(pages[start:end], cfg.GroupConfidence, reason))
	}

	return newResult(groups), nil
}

// AssembleFromPartition validates the model's grouping against the input pages.
// Pages must exist, appear once and be contiguous inside a group. Pages the model
// left out are restored as their own groups, one per contiguous run.
func AssembleFromPartition(pages []models.Page, raw RawPartition, cfg Config) (models.PageAnalysisResult, error) {
	cfg = cfg.withDefaults()

	if len(pages) == 0 {
		return emptyResult(), nil
	}

	position := make(map[int]int, len(pages))
	for i, p := range pages {
		position[p.PageNumber] = i
	}

	type span struct {
		start, end int // [start, end) into pages
		confidence float64
		reasoning  string
	}

	covered := make([]bool, len(pages))
	var spans []span

	for gi, g := range raw.PageGroups {
		if len(g.Pages) == 0 {
			continue
		}

		idx := make([]int, 0, len(g.Pages))
		for _, num := range g.Pages {
			pos, ok := position[num]
			if !ok {
				return models.PageAnalysisResult{}, fmt.Errorf("group %d references unknown page %d: %w", gi+1, num, ErrValidation)
			}
			if covered[pos] {
				return models.PageAnalysisResult{}, fmt.Errorf("page %d assigned more than once: %w", num, ErrValidation)
			}
			covered[pos] = true
			idx = append(idx, pos)
		}

		slices.Sort(idx)
		for k := 1; k < len(idx); k++ {
			if idx[k] != idx[k-1]+1 {
				return models.PageAnalysisResult{}, fmt.Errorf("group %d is not contiguous (pages %v): %w", gi+1, g.Pages, ErrValidation)
			}
		}

		s := span{start: idx[0], end: idx[len(idx)-1] + 1, confidence: cfg.GroupConfidence, reasoning: reasonTextGroup}
		if g.Confidence != nil {
			s.confidence = clamp01(*g.Confidence)
		}
		if r := strings.TrimSpace(g.Reasoning); r != "" {
			s.reasoning = r
		}
		spans = append(spans, s)
	}

	for i := 0; i < len(pages); {
		if covered[i] {
			i++
			continue
		}
		j := i
		for j < len(pages) && !covered[j] {
			j++
		}
		spans = append(spans, span{start: i, end: j, confidence: cfg.GroupConfidence, reasoning: reasonOmittedPages})
		i = j
	}

	slices.SortFunc(spans, func(a, b span) int { return a.start - b.start })

	groups := make([]models.PageGroup, 0, len(spans))
	for _, s := range spans {
		groups = append(groups, newGroup(pages[s.start:s.end], s.confidence, s.reasoning))
	}
	return newResult(groups), nil
}

// fallbackResult puts every page into one low-confidence group that explains the failure.
func fallbackResult(pages []models.Page, err error, cfg Config) models.PageAnalysisResult {
	if len(pages) == 0 {
		return emptyResult()
	}
	reason := fmt.Sprintf("Analysis failed, treating document as a single invoice: %s", err.Error())
	return newResult([]models.PageGroup{newGroup(pages, cfg.FallbackConfidence, reason)})
}

// newGroup builds a group from contiguous pages and runs the container heuristic
// over their combined text.
func newGroup(pages []models.Page, confidence float64, reasoning string) models.PageGroup {
	numbers := make([]int, len(pages))
	texts := make([]string, len(pages))
	for i, p := range pages {
		numbers[i] = p.PageNumber
		texts[i] = p.Content
	}

	signals := DetectContainer(strings.Join(texts, "\n"))
	return models.PageGroup{
		Pages:               numbers,
		Confidence:          clamp01(confidence),
		Reasoning:           reasoning,
		IsExpensifyExport:   signals.IsExpensifyExport,
		ExpensifyConfidence: signals.ExpensifyConfidence,
		ExpensifyIndicators: signals.ExpensifyIndicators,
		ExpensifyReason:     signals.ExpensifyReason,
	}
}

// newResult numbers the groups from 1 in the order given.
func newResult(groups []models.PageGroup) models.PageAnalysisResult {
	for i := range groups {
		groups[i].InvoiceNumber = i + 1
	}
	return models.PageAnalysisResult{TotalInvoices: len(groups), PageGroups: groups}
}
