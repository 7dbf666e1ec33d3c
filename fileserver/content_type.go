package fileserver

import (
	"mime"
	"path"
	"strings"

	"github.com/fsource/fsource/source"
)

const defaultContentType = "application/octet-stream"

// builtinTypes covers extensions the host OS mime database may lack, so
// responses do not vary between systems.
var builtinTypes = map[string]string{
	".css":   "text/css; charset=utf-8",
	".gif":   "image/gif",
	".htm":   "text/html; charset=utf-8",
	".html":  "text/html; charset=utf-8",
	".ico":   "image/x-icon",
	".jpeg":  "image/jpeg",
	".jpg":   "image/jpeg",
	".js":    "text/javascript; charset=utf-8",
	".json":  "application/json",
	".pdf":   "application/pdf",
	".png":   "image/png",
	".svg":   "image/svg+xml",
	".txt":   "text/plain; charset=utf-8",
	".wasm":  "application/wasm",
	".woff2": "font/woff2",
	".xml":   "text/xml; charset=utf-8",
}

// contentType infers the Content-Type of a response from the extension of
// the resolved path. Unknown extensions map to application/octet-stream.
func contentType(p source.Path) string {
	ext := strings.ToLower(path.Ext(string(p)))

	if ct, ok := builtinTypes[ext]; ok {
		return ct
	}

	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}

	return defaultContentType
}
