// Package preflight validates uploaded PDFs before a job is accepted, so
// obviously corrupt documents are rejected at upload time instead of
// burning a pipeline run.
package preflight

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Info describes an inspected document.
type Info struct {
	Pages int
}

// Inspect validates the PDF at path and reports its page count. Validation
// is relaxed, matching what real-world scanner output tends to look like.
func Inspect(path string) (Info, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	if err := api.ValidateFile(path, cfg); err != nil {
		return Info{}, fmt.Errorf("invalid PDF: %w", err)
	}

	pages, err := api.PageCountFile(path)
	if err != nil {
		return Info{}, fmt.Errorf("count pages: %w", err)
	}
	return Info{Pages: pages}, nil
}
