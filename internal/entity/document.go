package entity

import "time"

// OriginMeta carries what the source knew about a document before extraction.
type OriginMeta struct {
	Sender    string    `json:"sender,omitempty"`
	Date      time.Time `json:"date,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	MessageID string    `json:"message_id,omitempty"`
}

// SourceDocument is one input file. It is not mutated after the source yields it.
type SourceDocument struct {
	Name        string     `json:"name"`
	Path        string     `json:"path,omitempty"` // on-disk location, empty for in-memory documents
	Data        []byte     `json:"-"`
	MIMEType    string     `json:"mime_type"`
	Fingerprint string     `json:"fingerprint"`
	Meta        OriginMeta `json:"meta"`
}
