package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Persona is a named character profile derived from ingested material.
// Name is the exact key; ID is derived from it and never changes.
type Persona struct {
	ID          ID
	Name        string
	Description string
	CreatedAt   time.Time
}

// Chunk is a contiguous slice of one extracted source.
// Start and End are rune offsets into the source text, End exclusive.
type Chunk struct {
	SourceID ID
	Index    int
	Text     string
	Start    int
	End      int
}

// VectorEntry is a chunk as stored in a persona's vector collection.
type VectorEntry struct {
	ID       ID
	SourceID ID
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// RetrievedChunk is a collection entry returned by a similarity query.
type RetrievedChunk struct {
	EntryID  ID
	SourceID ID
	Text     string
	Score    float32
}

// Message is a single turn in a conversation.
// RetrievalContext and RetrievalSources are only set on assistant replies.
type Message struct {
	Role             Role
	Content          string
	Timestamp        time.Time
	RetrievalContext []string
	RetrievalSources []ID
}

// SessionConfig controls how replies are generated within a session.
type SessionConfig struct {
	Model        string
	Temperature  float64
	MaxTokens    int
	RetrievalK   int
	UseRetrieval bool
}

// DefaultSessionConfig returns the generation settings used when a chat
// request arrives without an existing session.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Temperature:  0.7,
		MaxTokens:    1000,
		RetrievalK:   3,
		UseRetrieval: true,
	}
}

// Session is a conversation owned by a single user.
type Session struct {
	ID        ID
	Owner     string
	Config    SessionConfig
	CreatedAt time.Time
	UpdatedAt time.Time
}
