package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/avoronov/xscout/app/database"
	"github.com/avoronov/xscout/app/sources"
)

type stubRunRepo struct {
	runs   map[string]*database.Run
	briefs map[string]*database.Brief
}

func (s *stubRunRepo) CreateRun(topic, profile string, lookbackHours int, pulledAt time.Time, sourceCounts map[string]int, postCount int) (string, error) {
	return "", nil
}

func (s *stubRunRepo) GetRun(id string) (*database.Run, error) {
	return s.runs[id], nil
}

func (s *stubRunRepo) GetRuns(limit int) ([]database.Run, error) {
	var runs []database.Run
	for _, run := range s.runs {
		runs = append(runs, *run)
		if len(runs) == limit {
			break
		}
	}
	return runs, nil
}

func (s *stubRunRepo) GetRunCount() (int, error) {
	return len(s.runs), nil
}

func (s *stubRunRepo) SaveBrief(runID, model, content string) (string, error) {
	return "", nil
}

func (s *stubRunRepo) GetBrief(runID string) (*database.Brief, error) {
	return s.briefs[runID], nil
}

type stubPostRepo struct {
	posts map[string][]database.Post
}

func (s *stubPostRepo) InsertPosts(runID string, posts []sources.Post) error {
	return nil
}

func (s *stubPostRepo) GetPosts(runID string) ([]database.Post, error) {
	return s.posts[runID], nil
}

func (s *stubPostRepo) GetPostCount(runID string) (int, error) {
	return len(s.posts[runID]), nil
}

func newTestServer(apiAccessKey string) *httptest.Server {
	runRepo := &stubRunRepo{
		runs: map[string]*database.Run{
			"run-1": {
				ID:            "run-1",
				Topic:         "local llm",
				Profile:       "local-ai",
				LookbackHours: 24,
				PostCount:     2,
				SourceCounts:  map[string]int{"reddit": 2},
				PulledAt:      time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC),
				CreatedAt:     time.Date(2026, 8, 28, 12, 0, 5, 0, time.UTC),
			},
		},
		briefs: map[string]*database.Brief{
			"run-1": {
				ID:      "brief-1",
				RunID:   "run-1",
				Model:   "test-model",
				Content: "# Local AI Scout\n\nTop signal.",
			},
		},
	}
	postRepo := &stubPostRepo{
		posts: map[string][]database.Post{
			"run-1": {
				{ID: "p1", RunID: "run-1", Source: "reddit", Author: "u/a",
					Text: "post one", URL: "https://example.com/1",
					PostedAt: time.Date(2026, 8, 28, 11, 0, 0, 0, time.UTC), Score: 4},
				{ID: "p2", RunID: "run-1", Source: "reddit", Author: "u/b",
					Text: "post two", URL: "https://example.com/2",
					PostedAt: time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC), Score: 1},
			},
		},
	}

	return httptest.NewServer(NewServer(NewHandler(runRepo, postRepo), apiAccessKey))
}

func getJSON(t *testing.T, url string) map[string]interface{} {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	return result
}

func TestGetHealth(t *testing.T) {
	server := newTestServer("")
	defer server.Close()

	result := getJSON(t, server.URL+"/health")
	if result["runs"] != float64(1) {
		t.Errorf("Expected 1 run in health, got %v", result["runs"])
	}
	if result["timestamp"] == nil {
		t.Error("Expected timestamp in health response")
	}
}

func TestListRuns(t *testing.T) {
	server := newTestServer("")
	defer server.Close()

	result := getJSON(t, server.URL+"/runs")
	if result["total"] != float64(1) {
		t.Errorf("Expected 1 run, got %v", result["total"])
	}

	runs := result["runs"].([]interface{})
	run := runs[0].(map[string]interface{})
	if run["topic"] != "local llm" {
		t.Errorf("Expected topic in run listing, got %v", run["topic"])
	}
}

func TestListRunsInvalidLimit(t *testing.T) {
	server := newTestServer("")
	defer server.Close()

	resp, err := http.Get(server.URL + "/runs?limit=zero")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid limit, got %d", resp.StatusCode)
	}
}

func TestGetRunDetails(t *testing.T) {
	server := newTestServer("")
	defer server.Close()

	result := getJSON(t, server.URL+"/runs/run-1")
	if result["id"] != "run-1" {
		t.Errorf("Expected run ID, got %v", result["id"])
	}
	if result["archived_posts"] != float64(2) {
		t.Errorf("Expected archived post count, got %v", result["archived_posts"])
	}

	brief := result["brief"].(map[string]interface{})
	if brief["model"] != "test-model" {
		t.Errorf("Expected brief model, got %v", brief["model"])
	}
}

func TestGetRunNotFound(t *testing.T) {
	server := newTestServer("")
	defer server.Close()

	resp, err := http.Get(server.URL + "/runs/missing")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestGetBriefMarkdown(t *testing.T) {
	server := newTestServer("")
	defer server.Close()

	resp, err := http.Get(server.URL + "/runs/run-1/brief")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/markdown") {
		t.Errorf("Expected markdown content type, got '%s'", resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("X-Model") != "test-model" {
		t.Errorf("Expected model header, got '%s'", resp.Header.Get("X-Model"))
	}
}

func TestGetPosts(t *testing.T) {
	server := newTestServer("")
	defer server.Close()

	result := getJSON(t, server.URL+"/runs/run-1/posts")
	if result["total"] != float64(2) {
		t.Errorf("Expected 2 posts, got %v", result["total"])
	}

	posts := result["posts"].([]interface{})
	post := posts[0].(map[string]interface{})
	if post["source"] != "reddit" {
		t.Errorf("Expected source in post, got %v", post["source"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	server := newTestServer("secret")
	defer server.Close()

	// Health stays public
	resp, err := http.Get(server.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected health without auth, got %d", resp.StatusCode)
	}

	// Runs require the key
	resp, err = http.Get(server.URL + "/runs")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", resp.StatusCode)
	}

	// X-API-Key header
	req, _ := http.NewRequest(http.MethodGet, server.URL+"/runs", nil)
	req.Header.Set("X-API-Key", "secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with key, got %d", resp.StatusCode)
	}

	// Bearer token form
	req, _ = http.NewRequest(http.MethodGet, server.URL+"/runs", nil)
	req.Header.Set("Authorization", "Bearer secret")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", resp.StatusCode)
	}

	// Wrong key
	req, _ = http.NewRequest(http.MethodGet, server.URL+"/runs", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", resp.StatusCode)
	}
}
