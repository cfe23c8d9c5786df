package ir

// Version constants stored with every run.
const (
	// IRVersion is the record schema version.
	IRVersion = "1"

	// EngineVersion is the paramtrace engine version.
	EngineVersion = "0.1.0"
)
