package ir

// Version constants reported by the CLI and stored with journal entries.
const (
	// DocumentVersion is the canonical document format version.
	DocumentVersion = "1"

	// EngineVersion is the esq release version.
	EngineVersion = "0.1.0"
)
