package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"design, inspiration, dev", []string{"design", "inspiration", "dev"}},
		{"  a ,, b , ", []string{"a", "b"}},
		{"", []string{}},
		{" , , ", []string{}},
		{"single", []string{"single"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseTags(tt.in))
		})
	}
}

func TestFormatTagsRoundTrip(t *testing.T) {
	tags := []string{"go", "web dev", "tools"}
	assert.Equal(t, tags, ParseTags(FormatTags(tags)))
}

func TestFaviconURL(t *testing.T) {
	got := FaviconURL("https://go.dev/doc/effective_go?x=1")
	require.NotNil(t, got)
	assert.Equal(t, "https://www.google.com/s2/favicons?domain=https://go.dev&sz=32", *got)

	got = FaviconURL("http://localhost:8080/a")
	require.NotNil(t, got)
	assert.Equal(t, "https://www.google.com/s2/favicons?domain=http://localhost:8080&sz=32", *got)

	assert.Nil(t, FaviconURL("not a url"))
	assert.Nil(t, FaviconURL(""))
}

func TestBookmarkClone(t *testing.T) {
	col := "c1"
	b := Bookmark{ID: "b1", CollectionID: &col, Tags: []string{"a"}}

	c := b.Clone()
	*c.CollectionID = "c2"
	c.Tags[0] = "z"

	assert.Equal(t, "c1", *b.CollectionID)
	assert.Equal(t, "a", b.Tags[0])
}
