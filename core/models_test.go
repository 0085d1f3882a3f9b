package core

import (
	"strings"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantSame bool
	}{
		{
			name:     "same content produces same ID",
			content:  "test content",
			wantSame: true,
		},
		{
			name:     "empty string",
			content:  "",
			wantSame: true,
		},
		{
			name:     "long content",
			content:  "This is a much longer piece of content that should still hash consistently",
			wantSame: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)

			if tt.wantSame && id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	id1 := IDFromContent("content1")
	id2 := IDFromContent("content2")

	if id1 == id2 {
		t.Errorf("IDFromContent() produced same ID for different content")
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "single word", in: "Ada", want: "ada"},
		{name: "two words", in: "Jane Doe", want: "jane_doe"},
		{name: "whitespace run", in: "Jane \t Doe", want: "jane_doe"},
		{name: "surrounding space", in: "  Jane Doe  ", want: "jane_doe"},
		{name: "unicode", in: "Émile Zola", want: "émile_zola"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Slug(tt.in); got != tt.want {
				t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCollectionName(t *testing.T) {
	a := CollectionName("Jane Doe")
	b := CollectionName("jane doe")

	if !strings.HasPrefix(a, "persona_jane_doe_") {
		t.Errorf("CollectionName() = %q, want persona_jane_doe_ prefix", a)
	}
	if a == b {
		t.Errorf("CollectionName() collided for names that share a slug: %q", a)
	}
	if a != CollectionName("Jane Doe") {
		t.Errorf("CollectionName() is not deterministic")
	}
}

func TestDefaultSessionConfig(t *testing.T) {
	cfg := DefaultSessionConfig()
	if cfg.RetrievalK != 3 {
		t.Errorf("RetrievalK = %d, want 3", cfg.RetrievalK)
	}
	if !cfg.UseRetrieval {
		t.Errorf("UseRetrieval = false, want true")
	}
	if cfg.Temperature != 0.7 || cfg.MaxTokens != 1000 {
		t.Errorf("unexpected generation defaults: %+v", cfg)
	}
}
