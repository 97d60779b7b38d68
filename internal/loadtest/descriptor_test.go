package loadtest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDescriptorsSingleObject(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"hostname":"example.com","path":"/x"}`), 0o644))

	list, err := LoadDescriptors(path)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "example.com", list[0].Hostname)
	assert.Equal(t, "GET", list[0].Method)
	assert.Equal(t, "80", list[0].Port)
}

func TestLoadDescriptorsArray(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desc.json")
	body := `[{"hostname":"a"},{"hostname":"b","method":"post"}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	list, err := LoadDescriptors(path)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Hostname)
	assert.Equal(t, "POST", list[1].Method)
}

func TestLoadDescriptorsRejectsUnknownMethod(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "desc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"method":"PATCH"}`), 0o644))

	_, err := LoadDescriptors(path)
	assert.Error(t, err)
}

func TestSingleDescriptorParsesURL(t *testing.T) {
	list, err := SingleDescriptor("https://api.example.com:8443/v1/items?x=1", "GET", nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	d := list[0]
	assert.Equal(t, "api.example.com", d.Hostname)
	assert.Equal(t, "8443", d.Port)
	assert.Equal(t, "/v1/items?x=1", d.Path)
}

func TestSingleDescriptorDefaultsSchemeAndPort(t *testing.T) {
	list, err := SingleDescriptor("localhost/ping", "GET", nil)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "localhost", list[0].Hostname)
	assert.Equal(t, "80", list[0].Port)
	assert.Equal(t, "/ping", list[0].Path)
}

func TestSingleDescriptorHTTPSDefaultsPort443(t *testing.T) {
	list, err := SingleDescriptor("https://secure.example.com", "GET", nil)
	require.NoError(t, err)
	assert.Equal(t, "443", list[0].Port)
	assert.Equal(t, "/", list[0].Path)
}
