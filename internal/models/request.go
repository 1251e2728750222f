// Package models defines the public API types for the download resolver.
package models

import (
	"fmt"
	"regexp"
	"strings"
)

// EnqueueRequest asks for a document's download URL.
type EnqueueRequest struct {
	URL            string `json:"url" doc:"Document URL or bare numeric document ID" example:"https://www.scribd.com/document/123456789/Title"`
	TurnstileToken string `json:"turnstileToken,omitempty" doc:"Cloudflare Turnstile token, required when verification is enabled"`
}

var (
	docPathPattern = regexp.MustCompile(`/document/(\d+)`)
	docIDPattern   = regexp.MustCompile(`^\d+$`)
)

// ParseDocumentID extracts the numeric document ID from a document URL,
// or validates a bare numeric ID.
func ParseDocumentID(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty document reference")
	}
	if docIDPattern.MatchString(input) {
		return input, nil
	}
	if m := docPathPattern.FindStringSubmatch(input); m != nil {
		return m[1], nil
	}
	return "", fmt.Errorf("no document ID in %q", input)
}
