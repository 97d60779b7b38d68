package templating

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSubstitutesKeyAndRecordIndex(t *testing.T) {
	e := New()
	out, err := e.render("t", "/users/{{.Key}}/{{.RecordIndex}}", Data{Key: "abc", RecordIndex: 7})
	require.NoError(t, err)
	assert.Equal(t, "/users/abc/7", out)
}

func TestPreprocessRewritesNakedShorthand(t *testing.T) {
	e := New()
	out, err := e.render("t", "/items/{{key}}?i={{recordIndex}}", Data{Key: "k1", RecordIndex: 3})
	require.NoError(t, err)
	assert.Equal(t, "/items/k1?i=3", out)
}

func TestRandomUUIDProducesDistinctValues(t *testing.T) {
	e := New()
	a, err := e.render("t", "{{randomUUID}}", Data{})
	require.NoError(t, err)
	b, err := e.render("t", "{{randomUUID}}", Data{})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}

func TestRandomChoicePicksFromProvidedSet(t *testing.T) {
	e := New()
	out, err := e.render("t", `{{randomChoice "a" "b" "c"}}`, Data{})
	require.NoError(t, err)
	assert.Contains(t, []string{"a", "b", "c"}, out)
}

func TestRandomLineReadsAndCachesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\ntwo\n\nthree\n"), 0o644))

	e := New()
	out, err := e.render("t", `{{randomLine "`+path+`"}}`, Data{})
	require.NoError(t, err)
	assert.Contains(t, []string{"one", "two", "three"}, out)

	assert.Len(t, e.fileCache[path], 3)
}

func TestCompileLeavesUnsetPiecesNil(t *testing.T) {
	ct, err := Compile(New(), "", nil, "")
	require.NoError(t, err)
	assert.Nil(t, ct.path)
	assert.Nil(t, ct.body)
	assert.Empty(t, ct.header)
}

func TestHooksRenderPathHeadersAndBody(t *testing.T) {
	ct, err := Compile(New(), "/users/{{.Key}}", map[string]string{"X-Record": "{{.RecordIndex}}"}, `{"key":"{{.Key}}"}`)
	require.NoError(t, err)

	pathFunc, headerFunc, bodyFunc := ct.Hooks(func(key string) int { return 42 })
	require.NotNil(t, pathFunc)
	require.NotNil(t, headerFunc)
	require.NotNil(t, bodyFunc)

	assert.Equal(t, "/users/abc", pathFunc("abc"))
	assert.Equal(t, map[string]string{"X-Record": "42"}, headerFunc("abc"))
	assert.JSONEq(t, `{"key":"abc"}`, string(bodyFunc("abc")))
}
