package cache

import (
	"fmt"
	"mime"
	"strings"

	"github.com/spf13/afero"
)

// TmpSuffix marks in-progress writes. A crash can leave these behind;
// the janitor sweeps them and the next ingestion overwrites them.
const TmpSuffix = ".tmp"

// WriteFileAtomic writes data to path via a sibling temp file and a
// rename, so a partially written file is never observable at path.
func WriteFileAtomic(fs afero.Fs, path string, data []byte) error {
	tmp := path + TmpSuffix

	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		// Leave the temp file for the janitor rather than risk a second
		// failing syscall here.
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// extByContentType maps asset content types to file extensions.
// Anything unknown gets ".bin".
var extByContentType = map[string]string{
	"image/png":                "png",
	"image/jpeg":               "jpg",
	"image/gif":                "gif",
	"image/webp":               "webp",
	"image/svg+xml":            "svg",
	"image/x-icon":             "ico",
	"image/vnd.microsoft.icon": "ico",
}

// ExtensionFor picks a file extension for a Content-Type header value.
func ExtensionFor(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	if ext, ok := extByContentType[mt]; ok {
		return ext
	}
	return "bin"
}
