package llm

import (
	"strings"
)

// BuildSystemPrompt tells the provider what a delivery note is and which fields to return.
func BuildSystemPrompt() string {
	parts := []string{
		"You are a delivery note parser. Return ONLY a JSON object that matches the provided JSON Schema.",
		"Fields: sender (the company or person the goods come from), address (the shipping or delivery address),",
		"date (as printed on the note, do not reformat), items (array of objects with description, quantity, unit_price),",
		"total (as printed), and date_order (DMY or MDY when the note's locale makes the day/month order clear).",
		"Copy quantities and prices as printed, including currency symbols; do not compute missing values.",
		"If the table cannot be split into rows, put the raw item block under items_text instead of items.",
		"Never output null. If a field is not present, omit it.",
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the envelope hints for an attached document.
func BuildUserPrompt(req VisionRequest) string {
	var b strings.Builder
	b.WriteString("Parse this delivery note and extract the structured information.\n")
	if n := strings.TrimSpace(req.Name); n != "" {
		b.WriteString("Filename: ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	if s := strings.TrimSpace(req.SenderHint); s != "" {
		b.WriteString("Email sender: ")
		b.WriteString(s)
		b.WriteString("\n")
	}
	if d := strings.TrimSpace(req.DateHint); d != "" {
		b.WriteString("Email date: ")
		b.WriteString(d)
		b.WriteString("\n")
	}
	b.WriteString("Return ONLY JSON.")
	return b.String()
}

// BuildStructuringPrompt asks for JSON from free text a previous vision call returned.
func BuildStructuringPrompt(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > 6000 {
		text = text[:6000] + "\n...(truncated)"
	}
	return "Parse this delivery note text and return a JSON object with these fields: " +
		"sender, address, date, items (array of objects with description, quantity, unit_price), and total. " +
		"Here's the text:\n\n" + text
}
