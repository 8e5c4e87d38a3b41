package segmenter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegment(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", []string{}},
		{"whitespace only", " \n\t\r\n  ", []string{}},
		{"single line", "Hello world.", []string{"Hello world."}},
		{"blank lines dropped", "A.\n\n\nB.", []string{"A.", "B."}},
		{"windows line endings", "A.\r\n\r\nB.", []string{"A.", "B."}},
		{"old mac line endings", "A.\rB.", []string{"A.", "B."}},
		{"trims and collapses", "  one   two\tthree  ", []string{"one two three"}},
		{"no merging of short lines", "Hi\nthere", []string{"Hi", "there"}},
		{"unicode kept", "  Ünïcödé  text ", []string{"Ünïcödé text"}},
		{"ideographic spaces collapsed", "\u3000\u3000第一章\u3000\u3000开始", []string{"第一章 开始"}},
		{"no-break spaces collapsed", "a\u00a0\u00a0b", []string{"a b"}},
		{"vertical tabs collapsed", "a\v\vb", []string{"a b"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(tt *testing.T) {
			assert.Equal(tt, tc.want, Segment(tc.raw))
		})
	}
}

func TestSegment_PreservesOrderAndContent(t *testing.T) {
	t.Parallel()

	raw := "first\n\n  second  paragraph \r\nthird\r\r\nfourth"
	paragraphs := Segment(raw)

	assert.Equal(t, []string{"first", "second paragraph", "third", "fourth"}, paragraphs)
	last := -1
	for _, p := range paragraphs {
		assert.NotEmpty(t, p)
		assert.Equal(t, strings.TrimSpace(p), p)
		idx := strings.Index(raw, strings.Fields(p)[0])
		assert.Greater(t, idx, last)
		last = idx
	}
}
