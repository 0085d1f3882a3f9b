package retrieval

import (
	"github.com/poiesic/mimesis/core"
)

// Monitor provides hooks to observe retrieval.
// Implement this interface to trace intermediate steps and results.
type Monitor interface {
	Start(collection, query string)
	AfterEmbedding(vector []float32)
	AfterQuery(chunks []core.RetrievedChunk)
	Finish(outcome Outcome)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_, _ string)                  {}
func (n *noopMonitor) AfterEmbedding(_ []float32)         {}
func (n *noopMonitor) AfterQuery(_ []core.RetrievedChunk) {}
func (n *noopMonitor) Finish(_ Outcome)                   {}
