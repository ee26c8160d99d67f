package models

// Page is a single rendered page of an uploaded document.
// Image is nil when the renderer produced no picture for the page.
type Page struct {
	PageNumber int    `json:"pageNumber"`
	Content    string `json:"content"`
	Image      []byte `json:"image,omitempty"`
}

// HasImage reports whether the page carries image bytes.
func (p Page) HasImage() bool {
	return len(p.Image) > 0
}

// BoundaryDecision is the verdict for one pair of adjacent pages.
type BoundaryDecision struct {
	PageAIndex   int     `json:"pageAIndex"`
	PageBIndex   int     `json:"pageBIndex"`
	SameDocument bool    `json:"sameDocument"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
}

// PageGroup is one invoice: a contiguous run of pages plus the container annotation.
type PageGroup struct {
	InvoiceNumber       int      `json:"invoiceNumber" db:"invoice_number"`
	Pages               []int    `json:"pages" db:"pages"`
	Confidence          float64  `json:"confidence" db:"confidence"`
	Reasoning           string   `json:"reasoning" db:"reasoning"`
	IsExpensifyExport   bool     `json:"isExpensifyExport" db:"is_expensify_export"`
	ExpensifyConfidence float64  `json:"expensifyConfidence" db:"expensify_confidence"`
	ExpensifyIndicators []string `json:"expensifyIndicators" db:"expensify_indicators"`
	ExpensifyReason     string   `json:"expensifyReason,omitempty" db:"expensify_reason"`
}

// PageAnalysisResult is the partition of a document into invoices.
type PageAnalysisResult struct {
	TotalInvoices int         `json:"totalInvoices"`
	PageGroups    []PageGroup `json:"pageGroups"`
}
