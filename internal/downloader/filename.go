package downloader

import (
	"mime"
	"path"
	"regexp"
	"strings"
)

// DefaultBaseName is used when a response does not suggest a file name.
const DefaultBaseName = "files"

const archiveExt = ".zip"

var (
	dispositionFilename = regexp.MustCompile(`(?i)filename="?([^";]+)"?`)
	archiveSuffix       = regexp.MustCompile(`(?i)\.(zip|gz|tgz|tar)$`)
)

// BaseNameFromDisposition extracts the suggested file name from a
// Content-Disposition header value and strips its archive extensions.
// It returns DefaultBaseName when the header carries no usable name.
func BaseNameFromDisposition(disposition string) string {
	name := filenameParam(disposition)

	// Servers may send a path; only the last element is a file name.
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(name)
	if name == "." || name == "/" || name == ".." {
		name = ""
	}

	for {
		stripped := archiveSuffix.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = stripped
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultBaseName
	}
	return name
}

func filenameParam(disposition string) string {
	if disposition == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(disposition); err == nil {
		// ParseMediaType decodes filename* into filename.
		if name := params["filename"]; name != "" {
			return name
		}
	}
	if m := dispositionFilename.FindStringSubmatch(disposition); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ComposeName builds the saved file name <label>-<node>-<base>.zip. The
// label part is left out when label is empty.
func ComposeName(label, node, base string) string {
	parts := make([]string, 0, 3)
	if label != "" {
		parts = append(parts, label)
	}
	parts = append(parts, node, base)
	return strings.Join(parts, "-") + archiveExt
}
