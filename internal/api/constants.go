package api

// Cache-Control header values.
const (
	CacheRevalidate = "private, no-cache"
	CacheNoStore    = "no-store"
)

// maxFormMemory is the part of a multipart body kept in memory; the rest
// spills to temporary files.
const maxFormMemory = 32 << 20

// maxFilesPerUpload caps the files accepted in one create request.
const maxFilesPerUpload = 50
