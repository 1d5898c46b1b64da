package models

const (
	PromptPrefix     = "Based on the uploaded documents:\n"
	TruncationMarker = "\n[context truncated]"

	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1000
	DefaultStorePath   = "saved_files.json"

	// StoreSchemaVersion is written into every saved document file.
	StoreSchemaVersion = 1
)
