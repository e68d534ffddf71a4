package ir

// Version constants for the journal schema and engine.
const (
	// SchemaVersion is the journal record schema version.
	SchemaVersion = "1"

	// EngineVersion is the feedsync engine version.
	EngineVersion = "0.1.0"
)
