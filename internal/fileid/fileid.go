// Package fileid generates collision-resistant identifiers for stored files.
package fileid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const (
	DefaultPrefix = "file"
	DefaultLength = 12

	// maxHintLen caps the slugified name component, underscore included,
	// so a long original filename cannot blow up the id.
	maxHintLen = 20
)

// New produces a filesystem- and URL-safe file identifier of the form
// {prefix}_{timestamp}_{random-hex}[_{slugified-hint}]. The timestamp embeds
// generation order for debugging; uniqueness is probabilistic and rests on
// the random component, with the metadata store's UNIQUE constraint as the
// authoritative backstop. The random bytes come from crypto/rand because the
// id doubles as a hard-to-guess token embedded in URLs.
func New(nameHint, prefix string, length int) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if length <= 0 {
		length = DefaultLength
	}

	timestamp := time.Now().UnixMicro() / 100

	buf := make([]byte, length/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform entropy source is broken;
		// nothing sensible can run without it.
		panic(fmt.Sprintf("fileid: crypto/rand unavailable: %v", err))
	}
	random := hex.EncodeToString(buf)

	id := fmt.Sprintf("%s_%d_%s", prefix, timestamp, random)

	if nameHint != "" {
		if slug := slugify(stem(nameHint)); slug != "" {
			component := "_" + slug
			if len(component) > maxHintLen {
				component = component[:maxHintLen]
			}
			id += component
		}
	}

	return id
}

// stem strips the directory and extension from an original filename
func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// slugify lowercases and reduces a name to [a-z0-9-], collapsing runs of
// anything else into single hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLower(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
