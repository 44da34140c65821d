package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"testing"

	_ "slotbooking/backend/docs"
)

var ginParam = regexp.MustCompile(`:(\w+)`)

func TestSwaggerDocCoversRoutes(t *testing.T) {
	api := newTestAPI(t)

	w := api.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var doc struct {
		BasePath string                                `json:"basePath"`
		Paths    map[string]map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json: %v", err)
	}
	if doc.BasePath != "/api/v1" {
		t.Fatalf("basePath = %q", doc.BasePath)
	}

	documented := 0
	for _, r := range api.router.Routes() {
		path, ok := strings.CutPrefix(r.Path, "/api/v1")
		if !ok {
			continue
		}
		path = ginParam.ReplaceAllString(path, "{$1}")
		if _, ok := doc.Paths[path][strings.ToLower(r.Method)]; !ok {
			t.Errorf("%s %s missing from swagger doc", r.Method, path)
		}
		documented++
	}
	total := 0
	for _, ops := range doc.Paths {
		total += len(ops)
	}
	if total != documented {
		t.Errorf("swagger doc lists %d operations, router serves %d", total, documented)
	}
}
