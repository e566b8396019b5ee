package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/deliverynotes/constants"
)

func (e *Extractor) extractImage(ctx context.Context, path string) (ExtractionResult, error) {
	txt, warn, err := e.tesseractOCR(ctx, path)
	if err != nil {
		return ExtractionResult{SourceType: constants.IMAGE, Warnings: warn}, err
	}
	txt = Normalize(txt)

	var ocrConf float32
	if e.cfg.EnableTSVConfidence {
		if c, w, err2 := e.tesseractTSVConfidence(ctx, path); err2 == nil {
			ocrConf = c
			warn = append(warn, w...)
		} else {
			warn = append(warn, err2.Error())
		}
	}
	heurConf := heuristicConfidence(txt)

	// weight tesseract's own score higher when present
	conf := heurConf
	if ocrConf > 0 {
		conf = 0.7*ocrConf + 0.3*heurConf
	}
	if conf > 1.0 {
		conf = 1.0
	}

	return ExtractionResult{
		Text:       txt,
		Pages:      1,
		SourceType: constants.IMAGE,
		Method:     "image-ocr",
		Language:   e.cfg.TesseractLang,
		Warnings:   warn,
		Confidence: conf,
	}, nil
}

func (e *Extractor) tesseractArgs(path string, extra ...string) []string {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(e.cfg.OEM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return append(args, extra...)
}

func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path)...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}

	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return txt, nil, nil
}

// tesseractTSVConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *Extractor) tesseractTSVConfidence(ctx context.Context, path string) (float32, []string, error) {
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, e.tesseractArgs(path, "tsv")...)
	if err != nil {
		return 0, []string{string(errb)}, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanTSVConfidence(string(out)), nil, nil
}

// meanTSVConfidence averages the conf column (11th) of tesseract TSV output.
func meanTSVConfidence(tsv string) float32 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float32(sum / n / 100.0)
}
