package retrieval

import "github.com/poiesic/mimesis/core"

// Status classifies a retrieval attempt.
type Status int

const (
	// StatusEmpty means the lookup succeeded without results, or was not run.
	StatusEmpty Status = iota
	// StatusHit means at least one chunk was retrieved.
	StatusHit
	// StatusFailed means the lookup failed and the failure was absorbed.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusEmpty:
		return "empty"
	case StatusHit:
		return "hit"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one retrieval attempt. Err is set only when
// Status is StatusFailed and wraps core.ErrRetrievalUnavailable.
type Outcome struct {
	Status Status
	Chunks []core.RetrievedChunk
	Err    error
}

// Texts returns the chunk texts in rank order.
func (o Outcome) Texts() []string {
	texts := make([]string, len(o.Chunks))
	for i, c := range o.Chunks {
		texts[i] = c.Text
	}
	return texts
}

// SourceIDs returns the distinct source IDs of the chunks in rank order.
func (o Outcome) SourceIDs() []core.ID {
	seen := make(map[core.ID]bool, len(o.Chunks))
	ids := make([]core.ID, 0, len(o.Chunks))
	for _, c := range o.Chunks {
		if seen[c.SourceID] {
			continue
		}
		seen[c.SourceID] = true
		ids = append(ids, c.SourceID)
	}
	return ids
}

func empty() Outcome {
	return Outcome{Status: StatusEmpty}
}

func failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Err: err}
}
