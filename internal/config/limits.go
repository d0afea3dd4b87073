package config

const (
	// MaxMessageLength is the maximum chat message length in bytes.
	// Oversized messages are rejected up front rather than truncated,
	// so the persisted turn always matches what the model saw.
	MaxMessageLength = 32 * 1024

	// MaxThreadTitleLength is the maximum length for thread titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxThreadTitleLength = 255

	// TitleFromMessageLength is how much of the first user message is
	// used to derive a new thread's title.
	TitleFromMessageLength = 50

	// MaxUploadBytes is the maximum accepted document upload size.
	MaxUploadBytes = 20 << 20 // 20 MB

	// MaxTopK caps retrieval fan-out regardless of configuration.
	MaxTopK = 20
)
