package sources

import (
	"testing"
	"time"
)

func TestSplitTopic(t *testing.T) {
	tests := []struct {
		name     string
		topic    string
		expected []string
	}{
		{"single term", "local llm", []string{"local llm"}},
		{"multiple terms", "llama.cpp, GGUF, MLX", []string{"llama.cpp", "GGUF", "MLX"}},
		{"extra whitespace", "  llama.cpp ,  GGUF  ", []string{"llama.cpp", "GGUF"}},
		{"empty parts", "llama.cpp,,GGUF,", []string{"llama.cpp", "GGUF"}},
		{"empty string", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			terms := SplitTopic(tt.topic)
			if len(terms) != len(tt.expected) {
				t.Fatalf("Expected %d terms, got %d: %v", len(tt.expected), len(terms), terms)
			}
			for i, term := range terms {
				if term != tt.expected[i] {
					t.Errorf("Expected term %d to be '%s', got '%s'", i, tt.expected[i], term)
				}
			}
		})
	}
}

func TestQuerySearchTerms(t *testing.T) {
	// Explicit terms win over the topic
	query := Query{Topic: "local llm", Terms: []string{"llama.cpp", "GGUF"}}
	terms := query.SearchTerms()
	if len(terms) != 2 || terms[0] != "llama.cpp" {
		t.Errorf("Expected configured terms, got %v", terms)
	}

	// Without terms the topic is split on commas
	query = Query{Topic: "llama.cpp, GGUF"}
	terms = query.SearchTerms()
	if len(terms) != 2 || terms[1] != "GGUF" {
		t.Errorf("Expected topic-derived terms, got %v", terms)
	}
}

func TestQueryCutoff(t *testing.T) {
	query := Query{Lookback: 24 * time.Hour}
	cutoff := query.Cutoff()

	expected := time.Now().UTC().Add(-24 * time.Hour)
	diff := cutoff.Sub(expected)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("Expected cutoff near %v, got %v", expected, cutoff)
	}
}

func TestNewContentHash(t *testing.T) {
	hash1 := NewContentHash("reddit", "https://example.com/post", "Title")
	hash2 := NewContentHash("reddit", "https://example.com/post", "Title")
	if hash1 != hash2 {
		t.Error("Same inputs should produce the same hash")
	}
	if len(hash1) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(hash1))
	}

	hash3 := NewContentHash("hackernews", "https://example.com/post", "Title")
	if hash1 == hash3 {
		t.Error("Different sources should produce different hashes")
	}

	hash4 := NewContentHash("reddit", "https://example.com/other", "Title")
	if hash1 == hash4 {
		t.Error("Different URLs should produce different hashes")
	}
}
