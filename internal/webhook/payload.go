// Package webhook models the inbound version-control change payload and its
// structural validation.
package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

// Payload is one webhook delivery: a repository identity and the commits it
// carries, in delivery order.
type Payload struct {
	Repository Repository `json:"repository"`
	Commits    []Commit   `json:"commits"`
}

// Repository identifies the source repository of a payload.
type Repository struct {
	ID      int64  `json:"id"`
	HTMLURL string `json:"html_url"`
}

// Author is the commit author identity as delivered by the provider.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Commit is one raw inbound change event. Immutable after decoding; the
// persisted form is the store's CommitRecord.
type Commit struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	URL       string    `json:"url"`
	Author    Author    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Added     []string  `json:"added"`
	Removed   []string  `json:"removed"`
	Modified  []string  `json:"modified"`
}

// Decode validates raw payload bytes against the wire schema and unmarshals
// them. Validation failures and malformed JSON are structural payload errors;
// the caller rejects the whole delivery.
func Decode(raw []byte) (*Payload, error) {
	if err := ValidateSchema(raw); err != nil {
		return nil, err
	}

	var payload Payload

	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	return &payload, nil
}
