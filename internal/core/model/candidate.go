package model

// Candidate is a raw location mention proposed by the upstream extraction
// step, together with the extractor's self-reported confidence (0-100).
// Payload carries the original record fields (id, title, authors, ...) so
// they survive into the grouped output.
type Candidate struct {
	Text          string                 `json:"text"`
	LLMConfidence float64                `json:"llmConfidence"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}
