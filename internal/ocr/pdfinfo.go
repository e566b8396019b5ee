package ocr

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PDFInfo is what we need to know about a PDF before choosing how to render it.
type PDFInfo struct {
	Pages int
}

// InspectPDF parses data with relaxed validation and returns its page count.
// Malformed PDFs return an error.
func InspectPDF(data []byte) (PDFInfo, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return PDFInfo{}, fmt.Errorf("inspect pdf: %w", err)
	}
	return PDFInfo{Pages: n}, nil
}
