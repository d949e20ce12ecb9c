package bulk

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

// PageReader returns the plain text of every page, in page order.
type PageReader interface {
	PageTexts(path string) ([]string, error)
}

// PageWriter copies the given 1-based pages of src, in order, to w as a new PDF.
type PageWriter interface {
	WritePages(src string, pages []int, w io.Writer) error
}

// PDFReader extracts page text with ledongthuc/pdf.
type PDFReader struct{}

func (PDFReader) PageTexts(path string) (texts []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf %s: %v", path, r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	texts = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			// Scanned pages without a text layer end up here.
			texts = append(texts, "")
			continue
		}
		texts = append(texts, s)
	}
	return texts, nil
}

// PDFWriter splits pages with pdfcpu.
type PDFWriter struct{}

func (PDFWriter) WritePages(src string, pages []int, w io.Writer) error {
	if len(pages) == 0 {
		return fmt.Errorf("no pages selected")
	}
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	sel := make([]string, len(pages))
	for i, p := range pages {
		sel[i] = strconv.Itoa(p)
	}
	if err := api.Trim(f, w, sel, nil); err != nil {
		return fmt.Errorf("split pages %v: %w", pages, err)
	}
	return nil
}
