package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/internal/entity"
)

func (e *Extractor) pdfToText(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := e.runner.Run(ctx, e.cfg.Pdftotext, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}
	text = string(out)
	// form feed separates pages
	pages = 1 + strings.Count(strings.TrimRight(text, "\f"), "\f")
	return text, pages, nil, nil
}

func (e *Extractor) pdfToOCR(ctx context.Context, path string) (text string, pages int, warnings []string, err error) {
	tmpDir, err := os.MkdirTemp("", "dn-pp-*")
	if err != nil {
		return "", 0, nil, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("failed to remove temp dir", "path", tmpDir, "error", err)
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	// pdftoppm -r 300 -png <in.pdf> <tmp/page>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm, append(args, path, prefix)...)
	if err != nil {
		return "", 0, []string{string(errb)}, err
	}

	// prefix-1.png, prefix-2.png, ...
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return "", 0, []string{"pdftoppm produced no images"}, fmt.Errorf("no pages rendered")
	}

	var b strings.Builder
	var warns []string
	for i, img := range matches {
		txt, w, err := e.tesseractOCR(ctx, img)
		if err != nil {
			warns = append(warns, entity.PageWarning(i+1, err))
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\f\n")
		}
		b.WriteString(txt)
		warns = append(warns, w...)
	}
	if b.Len() == 0 {
		return "", len(matches), warns, fmt.Errorf("tesseract failed on all %d pages", len(matches))
	}
	if e.cfg.MaxPages > 0 && len(matches) >= e.cfg.MaxPages {
		if w := e.pagesBeyondLimit(path); w != "" {
			warns = append(warns, w)
		}
	}
	return b.String(), len(matches), warns, nil
}

// pagesBeyondLimit returns a warning when the PDF has more pages than MaxPages
// lets pdftoppm render.
func (e *Extractor) pagesBeyondLimit(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	info, err := InspectPDF(data)
	if err != nil {
		e.logger.Debug("page count unavailable", "path", path, "error", err)
		return ""
	}
	if info.Pages <= e.cfg.MaxPages {
		return ""
	}
	e.logger.Warn("pdf truncated to max pages", "path", path, "pages", info.Pages, "max_pages", e.cfg.MaxPages)
	return entity.PagesSkippedWarning(e.cfg.MaxPages+1, info.Pages, "beyond ocr max_pages")
}

// RasterizeFirstPage renders page 1 of a PDF to PNG bytes, for providers that
// only accept images.
func (e *Extractor) RasterizeFirstPage(ctx context.Context, pdfPath string) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "dn-raster-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	prefix := filepath.Join(tmpDir, "first")
	// pdftoppm -r <dpi> -png -f 1 -l 1 -singlefile <in.pdf> <tmp/first>
	_, errb, err := e.runner.Run(ctx, e.cfg.Pdftoppm,
		"-r", strconv.Itoa(e.cfg.DPI), "-png", "-f", "1", "-l", "1", "-singlefile", pdfPath, prefix)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 512))
	}
	b, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rasterized page: %w", err)
	}
	return b, nil
}

// RasterizeFirstPageBytes is RasterizeFirstPage for in-memory PDFs.
func (e *Extractor) RasterizeFirstPageBytes(ctx context.Context, name, path string, data []byte) ([]byte, error) {
	if path != "" {
		return e.RasterizeFirstPage(ctx, path)
	}
	tmp, cleanup, err := spill(name, data)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	return e.RasterizeFirstPage(ctx, tmp)
}
