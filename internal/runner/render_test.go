package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingViewer struct {
	opened []string
	err    error
}

func (v *recordingViewer) Open(path string) error {
	if v.err != nil {
		return v.err
	}
	v.opened = append(v.opened, path)
	return nil
}

func renderRunner(t *testing.T, lang Language) (*RenderRunner, *recordingViewer, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "render")
	v := &recordingViewer{}
	r, err := NewRenderRunner(lang, dir, v, nil)
	require.NoError(t, err)
	return r, v, dir
}

func readArtifact(t *testing.T, dir string, res Result) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, res.Artifact))
	require.NoError(t, err)
	return string(data)
}

func TestRenderHTMLPassthrough(t *testing.T) {
	r, v, dir := renderRunner(t, HTML)
	src := "<!DOCTYPE html><html><body><h1>Hi {{.}}</h1></body></html>"

	res := r.Run(context.Background(), src, 0)
	require.True(t, res.Succeeded, res.Stderr)
	assert.Equal(t, 0.1, res.Elapsed)
	assert.Empty(t, res.Stderr)
	assert.True(t, strings.HasPrefix(res.Artifact, "codepad-html-"))
	assert.Equal(t, "HTML page opened in viewer: "+res.Artifact, res.Stdout)
	assert.Equal(t, src, readArtifact(t, dir, res))
	assert.Equal(t, []string{filepath.Join(dir, res.Artifact)}, v.opened)
}

func TestRenderCSSEmbedsSampleFragment(t *testing.T) {
	r, _, dir := renderRunner(t, CSS)

	res := r.Run(context.Background(), ".btn { color: red; }", 0)
	require.True(t, res.Succeeded)
	assert.Equal(t, "CSS preview opened in viewer: "+res.Artifact, res.Stdout)

	doc := readArtifact(t, dir, res)
	assert.Contains(t, doc, "<style>\n.btn { color: red; }\n    </style>")
	for _, frag := range []string{`class="container"`, `class="text"`, `class="btn"`, `class="box"`, `class="list"`} {
		assert.Contains(t, doc, frag)
	}
}

func TestRenderJavaScriptGuardsAndAutoRuns(t *testing.T) {
	r, _, dir := renderRunner(t, JavaScript)

	res := r.Run(context.Background(), "console.log('hi');", 0)
	require.True(t, res.Succeeded)
	assert.Equal(t, "JavaScript page running in viewer: "+res.Artifact, res.Stdout)

	doc := readArtifact(t, dir, res)
	assert.Contains(t, doc, "console.log = function(...args)")
	assert.Contains(t, doc, `id="output"`)
	assert.Contains(t, doc, "window.onload")

	try := strings.Index(doc, "try {")
	user := strings.Index(doc, "console.log('hi');")
	catch := strings.Index(doc, "} catch (error)")
	assert.True(t, try < user && user < catch, "source must run inside the guarded block")
}

func TestRenderUniqueArtifacts(t *testing.T) {
	r, _, _ := renderRunner(t, HTML)

	a := r.Run(context.Background(), "<p>a</p>", 0)
	b := r.Run(context.Background(), "<p>b</p>", 0)
	assert.NotEqual(t, a.Artifact, b.Artifact)
}

func TestRenderViewerFailure(t *testing.T) {
	r, v, _ := renderRunner(t, HTML)
	v.err = errors.New("no display")

	res := r.Run(context.Background(), "<p>", 0)
	assert.False(t, res.Succeeded)
	assert.Contains(t, res.Stderr, "no display")
}

func TestRenderUnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	r, err := NewRenderRunner(HTML, filepath.Join(file, "render"), &recordingViewer{}, nil)
	require.NoError(t, err)

	res := r.Run(context.Background(), "<p>", 0)
	assert.False(t, res.Succeeded)
	assert.NotEmpty(t, res.Stderr)
}

func TestNewRenderRunnerRejectsScriptLanguage(t *testing.T) {
	_, err := NewRenderRunner(Python, t.TempDir(), nil, nil)
	assert.Error(t, err)
}

func TestRenderSweep(t *testing.T) {
	r, _, dir := renderRunner(t, CSS)
	res := r.Run(context.Background(), "p{}", 0)
	require.True(t, res.Succeeded)

	other := filepath.Join(dir, "codepad-html-keep.html")
	require.NoError(t, os.WriteFile(other, nil, 0o644))

	n, err := r.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	r.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = r.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(dir, res.Artifact))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(other)
	assert.NoError(t, err)
}

func TestRenderSweepMissingDir(t *testing.T) {
	r, err := NewRenderRunner(HTML, filepath.Join(t.TempDir(), "absent"), nil, nil)
	require.NoError(t, err)
	n, err := r.Sweep(time.Minute)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestArtifactPath(t *testing.T) {
	p, err := ArtifactPath("/srv/render", "codepad-css-123.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/srv/render", "codepad-css-123.html"), p)

	for _, bad := range []string{"../codepad-x.html", "codepad-x.txt", "other.html", "a/codepad-x.html", ""} {
		_, err := ArtifactPath("/srv/render", bad)
		assert.Error(t, err, bad)
	}
}
