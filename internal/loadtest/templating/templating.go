// Package templating renders an operation descriptor's path, headers,
// and POST body through text/template before each request is issued,
// so an operator can write things like /users/{{randomUUID}} or a JSON
// body that embeds the key the engine drew for that request.
package templating

import (
	"bufio"
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/google/uuid"

	"ratewright/internal/engine"
)

// Data is the per-issue context every template executes against.
type Data struct {
	Key         string
	RecordIndex int
}

// Engine parses and caches templates and exposes the random/file-backed
// template funcs available to them.
type Engine struct {
	mu        sync.RWMutex
	fileCache map[string][]string
	funcMap   template.FuncMap
}

// New builds a template Engine with its function map installed.
func New() *Engine {
	e := &Engine{fileCache: make(map[string][]string)}
	e.funcMap = template.FuncMap{
		"randomInt":    e.randomInt,
		"randomUUID":   e.randomUUID,
		"randomChoice": e.randomChoice,
		"randomLine":   e.randomLine,
	}
	return e
}

// preprocess rewrites the naked-variable shorthand {{key}}/{{recordIndex}}
// into dot-notation field access, the same convenience the teacher's
// TemplateEngine offered for {{userID}}/{{uuid}}.
func (e *Engine) preprocess(input string) string {
	s := strings.ReplaceAll(input, "{{key}}", "{{.Key}}")
	s = strings.ReplaceAll(s, "{{recordIndex}}", "{{.RecordIndex}}")
	return s
}

func (e *Engine) parse(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(e.funcMap).Parse(e.preprocess(text))
}

func (e *Engine) execute(t *template.Template, data Data) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// render is a one-shot parse+execute for a single template string. The
// hooks built below do not use it: Compile parses each template once and
// the hooks only execute the parsed templates per request.
func (e *Engine) render(name, text string, data Data) (string, error) {
	t, err := e.parse(name, text)
	if err != nil {
		return "", fmt.Errorf("templating: parse %s: %w", name, err)
	}
	return e.execute(t, data)
}

func (e *Engine) randomInt(min, max int) int {
	if max <= min {
		return min
	}
	return rand.Intn(max-min) + min
}

func (e *Engine) randomUUID() string {
	return uuid.New().String()
}

func (e *Engine) randomChoice(choices ...string) string {
	if len(choices) == 0 {
		return ""
	}
	return choices[rand.Intn(len(choices))]
}

func (e *Engine) randomLine(filename string) (string, error) {
	e.mu.RLock()
	lines, ok := e.fileCache[filename]
	e.mu.RUnlock()
	if ok {
		return pickLine(lines), nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if lines, ok = e.fileCache[filename]; ok {
		return pickLine(lines), nil
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return "", fmt.Errorf("templating: read %s: %w", filename, err)
	}
	var loaded []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			loaded = append(loaded, line)
		}
	}
	e.fileCache[filename] = loaded
	return pickLine(loaded), nil
}

func pickLine(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return lines[rand.Intn(len(lines))]
}

// CompiledTemplates holds the parsed path/header/body templates for one
// operation descriptor, built once at startup and reused by every issued
// request against that descriptor.
type CompiledTemplates struct {
	engine *Engine
	path   *template.Template
	body   *template.Template
	header map[string]*template.Template
}

// Compile parses path, headers, and body against e, returning nil
// templates for any input that is empty so Hooks can fall back to the
// engine's own defaults for that piece.
func Compile(e *Engine, path string, headers map[string]string, body string) (*CompiledTemplates, error) {
	ct := &CompiledTemplates{engine: e, header: make(map[string]*template.Template, len(headers))}

	if path != "" {
		t, err := e.parse("path", path)
		if err != nil {
			return nil, fmt.Errorf("templating: compile path: %w", err)
		}
		ct.path = t
	}
	if body != "" {
		t, err := e.parse("body", body)
		if err != nil {
			return nil, fmt.Errorf("templating: compile body: %w", err)
		}
		ct.body = t
	}
	for k, v := range headers {
		t, err := e.parse("header:"+k, v)
		if err != nil {
			return nil, fmt.Errorf("templating: compile header %s: %w", k, err)
		}
		ct.header[k] = t
	}
	return ct, nil
}

// Hooks adapts ct into the engine.Connection.SetHooks signature, keyed
// on the record index the engine draws for each issued request; callers
// that only templated a subset of path/headers/body get nil funcs for
// the rest, leaving SetHooks's defaults in force for those.
func (ct *CompiledTemplates) Hooks(recordIndex func(key string) int) (pathFunc func(string) string, headerFunc func(string) map[string]string, bodyFunc func(string) []byte) {
	if ct.path != nil {
		pathFunc = func(key string) string {
			out, err := ct.engine.execute(ct.path, Data{Key: key, RecordIndex: recordIndex(key)})
			if err != nil {
				return key
			}
			return out
		}
	}
	if len(ct.header) > 0 {
		headerFunc = func(key string) map[string]string {
			data := Data{Key: key, RecordIndex: recordIndex(key)}
			rendered := make(map[string]string, len(ct.header))
			for name, t := range ct.header {
				if out, err := ct.engine.execute(t, data); err == nil {
					rendered[name] = out
				}
			}
			return rendered
		}
	}
	if ct.body != nil {
		bodyFunc = func(key string) []byte {
			out, err := ct.engine.execute(ct.body, Data{Key: key, RecordIndex: recordIndex(key)})
			if err != nil {
				return nil
			}
			return []byte(out)
		}
	}
	return pathFunc, headerFunc, bodyFunc
}

// Install compiles path/headers/body once and wires the resulting hooks
// onto conn in a single call. (internal/cli builds its hooks with Compile
// and Hooks directly instead.)
func Install(conn *engine.Connection, path string, headers map[string]string, body string, recordIndex func(key string) int) error {
	ct, err := Compile(New(), path, headers, body)
	if err != nil {
		return err
	}
	pathFunc, headerFunc, bodyFunc := ct.Hooks(recordIndex)
	conn.SetHooks(pathFunc, headerFunc, bodyFunc)
	return nil
}
