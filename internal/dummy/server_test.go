package dummy

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissEndpointReturnsRequestedCode(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/miss/404", nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/miss/", func(w http.ResponseWriter, r *http.Request) {
		code := parseTrailingCode(r.URL.Path, "/miss/")
		if !contains(missCodes, code) {
			code = missCodes[0]
		}
		w.WriteHeader(code)
	})
	mux.ServeHTTP(rec, req)

	assert.Equal(t, 404, rec.Code)
}

func TestMissEndpointFallsBackForUnlistedCode(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/miss/999", nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/miss/", func(w http.ResponseWriter, r *http.Request) {
		code := parseTrailingCode(r.URL.Path, "/miss/")
		if !contains(missCodes, code) {
			code = missCodes[0]
		}
		w.WriteHeader(code)
	})
	mux.ServeHTTP(rec, req)

	assert.Equal(t, missCodes[0], rec.Code)
}

func TestParseTrailingCode(t *testing.T) {
	assert.Equal(t, 404, parseTrailingCode("/miss/404", "/miss/"))
	assert.Equal(t, 0, parseTrailingCode("/miss/nope", "/miss/"))
}

func TestContains(t *testing.T) {
	assert.True(t, contains([]int{1, 2, 3}, 2))
	assert.False(t, contains([]int{1, 2, 3}, 9))
}
