package providers

import (
	"context"
)

// Document is an inline file sent alongside the prompt, such as a PDF
type Document struct {
	MIMEType string
	Data     []byte
}

// Config represents the configuration for an LLM provider
type Config struct {
	Model       string
	APIKey      string
	Temperature float64
	// System is the system instruction.
	System    string
	Prompt    string
	Documents []Document
	// JSON requests a JSON-only response.
	JSON bool
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}
