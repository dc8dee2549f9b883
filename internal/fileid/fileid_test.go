package fileid

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var idPattern = regexp.MustCompile(`^file_\d+_[a-f0-9]{12}(_[a-z0-9-]+)?$`)

func TestNew_Structure(t *testing.T) {
	id := New("document.pdf", "file", 12)

	assert.Regexp(t, idPattern, id)
	assert.True(t, strings.HasPrefix(id, "file_"))
	assert.True(t, strings.HasSuffix(id, "_document"))
}

func TestNew_Defaults(t *testing.T) {
	id := New("", "", 0)

	parts := strings.Split(id, "_")
	assert.Len(t, parts, 3)
	assert.Equal(t, "file", parts[0])
	assert.Len(t, parts[2], DefaultLength)
}

func TestNew_HintSanitized(t *testing.T) {
	tests := []struct {
		name   string
		hint   string
		suffix string
	}{
		{name: "spaces collapse to hyphens", hint: "My Report Final.pdf", suffix: "_my-report-final"},
		{name: "path stripped", hint: "../../etc/passwd", suffix: "_passwd"},
		{name: "special characters dropped", hint: "a!!b??c.png", suffix: "_a-b-c"},
		{name: "unusable hint omitted", hint: "!!!.jpg", suffix: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := New(tt.hint, "file", 12)
			if tt.suffix == "" {
				assert.Regexp(t, `^file_\d+_[a-f0-9]{12}$`, id)
			} else {
				assert.True(t, strings.HasSuffix(id, tt.suffix), "id %q should end with %q", id, tt.suffix)
			}
		})
	}
}

func TestNew_LongHintTruncated(t *testing.T) {
	id := New("a-very-long-original-filename-indeed.pdf", "file", 12)

	hint := id[strings.LastIndex(id, "_"):]
	assert.LessOrEqual(t, len(hint), 20)
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := New("same-name.png", "file", 12)
		assert.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}
}
