package ocr

import (
	"regexp"
	"strings"
)

var (
	reDate     = regexp.MustCompile(`\b\d{1,4}[/.\-]\d{1,2}[/.\-]\d{2,4}\b|\b\d{1,2}\s+(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
	reCurr     = regexp.MustCompile(`\b(usd|eur|gbp|cad|aud)\b|[$£€]`)
	reAmount   = regexp.MustCompile(`\b\d{1,3}(,\d{3})*(\.\d{2})\b|\b\d+\.\d{2}\b`)
	reNoteWord = regexp.MustCompile(`\b(delivery|despatch|dispatch|deliver to|ship to|qty|quantity|description)\b`)
)

// heuristicConfidence scores decoded text by how much it looks like a delivery note.
func heuristicConfidence(txt string) float32 {
	txtL := strings.ToLower(txt)
	score := float32(0.2)
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.1
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if reNoteWord.MatchString(txtL) {
		score += 0.2
	}
	if len(txt) > 120 {
		score += 0.1
	}
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
