package model

import "fmt"

// Article is the normalized input to one validation run
type Article struct {
	SourceURL   string `json:"source_url,omitempty"` // Where the text came from, empty for pasted content
	RawText     string `json:"raw_text"`             // Article body as supplied or fetched
	Title       string `json:"title,omitempty"`      // Title when fetched from a URL
	Fingerprint string `json:"fingerprint"`          // Content key, see package fingerprint
}

// Claim represents an atomic factual assertion extracted from the article
type Claim struct {
	ID    string `json:"id"`    // Stable within one result (claim-0, claim-1, ...)
	Text  string `json:"text"`  // The claim text itself
	Order int    `json:"order"` // Position in extraction order (0-based)
}

// ClaimID returns the identifier assigned to the claim at the given order
func ClaimID(order int) string {
	return fmt.Sprintf("claim-%d", order)
}
