package youtrack

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// fakeYouTrack serves deterministic issue and activity pages.
type fakeYouTrack struct {
	mu sync.Mutex

	// issues maps a decoded query to the number of matching issues.
	issues map[string]int
	// activities maps an issue id to the number of its activity items.
	activities map[string]int
	// flaky maps an issue id to how many garbage responses precede success.
	flaky map[string]int
	// rejected issue ids answer with an error object.
	rejected map[string]bool

	requests []string
}

func newFakeYouTrack(t *testing.T) (*fakeYouTrack, *httptest.Server) {
	t.Helper()
	f := &fakeYouTrack{
		issues:     map[string]int{},
		activities: map[string]int{},
		flaky:      map[string]int{},
		rejected:   map[string]bool{},
	}
	server := httptest.NewServer(f)
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeYouTrack) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeYouTrack) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.URL.String())

	q := r.URL.Query()
	skip, _ := strconv.Atoi(q.Get("$skip"))
	top, _ := strconv.Atoi(q.Get("$top"))

	switch {
	case r.URL.Path == "/api/issues":
		query := q.Get("query")
		total, ok := f.issues[query]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_query", "error_description": query})
			return
		}
		page := make([]map[string]any, 0, top)
		for i := skip; i < total && i < skip+top; i++ {
			page = append(page, map[string]any{"id": fmt.Sprintf("2-%d", i), "summary": fmt.Sprintf("issue %d", i)})
		}
		writeJSON(w, http.StatusOK, page)

	case strings.HasPrefix(r.URL.Path, "/api/issues/") && strings.HasSuffix(r.URL.Path, "/activities"):
		issueID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/issues/"), "/activities")
		if f.rejected[issueID] {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not Found"})
			return
		}
		if f.flaky[issueID] > 0 {
			f.flaky[issueID]--
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("<html>gateway hiccup</html>"))
			return
		}
		total := f.activities[issueID]
		page := make([]map[string]any, 0, top)
		for i := skip; i < total && i < skip+top; i++ {
			page = append(page, map[string]any{"id": fmt.Sprintf("%s.%d", issueID, i), "timestamp": 1600000000000 + i})
		}
		writeJSON(w, http.StatusOK, page)

	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
