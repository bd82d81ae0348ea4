package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestGetText(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<html><body><div>hello <b>world</b></div></body></html>`))
	require.NoError(t, err)
	require.Equal(t, "hello world", GetText(doc))
}

func TestFlatten(t *testing.T) {
	for _, tt := range []struct {
		name     string
		fragment string
		want     string
	}{
		{
			name:     "paragraphs",
			fragment: "<p>Hello</p><p>World</p>",
			want:     "Hello\nWorld\n",
		},
		{
			name:     "line breaks",
			fragment: "one<br>two",
			want:     "one\ntwo",
		},
		{
			name:     "table",
			fragment: "<table><tr><td>a</td><td>b</td></tr></table>",
			want:     "a\tb\n",
		},
		{
			name:     "anchor keeps description and link",
			fragment: `zie <a href="http://school.test/huiswerk">opdracht</a>`,
			want:     "zie opdracht http://school.test/huiswerk ",
		},
		{
			name:     "bare href and src",
			fragment: `<link href="http://school.test/style.css"><img src="http://school.test/logo.png">`,
			want:     `http://school.test/style.css http://school.test/logo.png `,
		},
		{
			name:     "entities",
			fragment: "a&nbsp;&lt;b&gt;&nbsp;c &amp; d",
			want:     "a <b> c & d",
		},
		{
			name:     "unknown tags stripped",
			fragment: `<span class="x">tekst</span>`,
			want:     "tekst",
		},
		{
			name:     "repeated link collapsed",
			fragment: `'http://school.test/a' http://school.test/a verder`,
			want:     "http://school.test/a verder",
		},
		{
			name:     "distinct links kept",
			fragment: `http://school.test/a http://school.test/b`,
			want:     "http://school.test/a http://school.test/b",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Flatten(tt.fragment))
		})
	}
}
