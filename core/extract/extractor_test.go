package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_RemovesNoise(t *testing.T) {
	html := `<html><head><title>  Building
	Manual </title><style>p{}</style></head><body>
	<nav><a href="/">Home</a></nav>
	<header><h1>Welcome</h1></header>
	<p>Visible text</p>
	<script>alert(1)</script>
	<form><input name="q"><button>Go</button></form>
	<footer>Copyright 2024</footer>
	</body></html>`

	page, err := New().Extract(strings.NewReader(html))
	require.NoError(t, err)

	require.NotNil(t, page.Title)
	assert.Equal(t, "Building Manual", *page.Title)

	text := page.Content.Text()
	assert.Contains(t, text, "Welcome")
	assert.Contains(t, text, "Visible text")
	assert.NotContains(t, text, "alert")
	assert.NotContains(t, text, "Home")
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "Go")
}

func TestExtract_PrefersMain(t *testing.T) {
	html := `<html><body><div>outside</div><main><h2>Inside</h2></main></body></html>`

	page, err := New().Extract(strings.NewReader(html))
	require.NoError(t, err)

	assert.Equal(t, "main", nodeName(page))
	assert.NotContains(t, page.Content.Text(), "outside")
}

func TestExtract_MissingTitleIsNil(t *testing.T) {
	page, err := New().Extract(strings.NewReader(`<p>no title here</p>`))
	require.NoError(t, err)
	assert.Nil(t, page.Title)
	assert.Contains(t, page.Content.Text(), "no title here")
}

func nodeName(p *Page) string {
	return p.Content.Nodes[0].Data
}
