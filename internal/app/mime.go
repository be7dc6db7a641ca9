package app

import (
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
)

func init() {
	ensureMimeType(".webp", "image/webp")
	ensureMimeType(".heic", "image/heic")
	ensureMimeType(".heif", "image/heif")
}

func ensureMimeType(ext, typ string) {
	if mime.TypeByExtension(ext) != "" {
		return
	}
	if err := mime.AddExtensionType(ext, typ); err != nil {
		slog.Default().Warn("register mime type", slog.String("ext", ext), slog.Any("error", err))
	}
}

// ImageContentType guesses an upload's content type from its file name. An
// empty result lets the backend sniff the bytes.
func ImageContentType(filename string) string {
	typ := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if !strings.HasPrefix(typ, "image/") {
		return ""
	}
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = typ[:i]
	}
	return typ
}
