package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// Report content types
const (
	MimeHTML     = "text/html; charset=utf-8"
	MimeMarkdown = "text/markdown; charset=utf-8"
)

const (
	// ContextUserKey holds the *Claims set by the auth middleware.
	ContextUserKey = "user"
	// ContextConfigKey holds the *config.Config injected by the app.
	ContextConfigKey = "config"
)
