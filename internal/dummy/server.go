// Package dummy runs a target HTTP server exercising every status-code
// bucket a connection's read state machine can classify, for manual
// testing and for integration tests against the engine.
package dummy

import (
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type ServerConfig struct {
	Port int
}

// missCodes mirrors engine's classifyStatus miss table: these all count
// as a logged GetMiss rather than a fatal error.
var missCodes = []int{204, 301, 302, 304, 400, 404, 405, 413, 417, 500, 501, 503}

func Start(cfg ServerConfig) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/fast", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(rand.Intn(40)+10) * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("fast response"))
	})

	mux.HandleFunc("/medium", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(rand.Intn(200)+100) * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("medium response"))
	})

	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Duration(rand.Intn(1000)+1000) * time.Millisecond)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("slow response"))
	})

	mux.HandleFunc("/spike", func(w http.ResponseWriter, r *http.Request) {
		if rand.Float32() < 0.05 {
			time.Sleep(2 * time.Second)
		} else {
			time.Sleep(20 * time.Millisecond)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("spikey response"))
	})

	// /miss/<code> always answers with one of the engine's documented
	// miss codes; an out-of-table code falls back to the first entry.
	mux.HandleFunc("/miss/", func(w http.ResponseWriter, r *http.Request) {
		code := parseTrailingCode(r.URL.Path, "/miss/")
		if !contains(missCodes, code) {
			code = missCodes[0]
		}
		w.WriteHeader(code)
		w.Write([]byte(fmt.Sprintf("miss %d", code)))
	})

	// /unknown/<code> answers with an out-of-table status, triggering
	// the engine's fatal UnknownStatus path; an operator picks the code.
	mux.HandleFunc("/unknown/", func(w http.ResponseWriter, r *http.Request) {
		code := parseTrailingCode(r.URL.Path, "/unknown/")
		if code == 0 || code == 200 || code == 202 || contains(missCodes, code) {
			code = 418
		}
		w.WriteHeader(code)
		w.Write([]byte(fmt.Sprintf("unknown %d", code)))
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	fmt.Printf("dummy server listening on http://localhost%s\n", addr)
	fmt.Println("endpoints: /fast /medium /slow /spike /miss/<code> /unknown/<code>")

	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("dummy server failed: %v\n", err)
		}
	}()
	return server
}

func parseTrailingCode(path, prefix string) int {
	code, err := strconv.Atoi(strings.TrimPrefix(path, prefix))
	if err != nil {
		return 0
	}
	return code
}

func contains(codes []int, code int) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
