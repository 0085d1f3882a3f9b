package ingestion

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/mimesis/ai/mock"
	"github.com/poiesic/mimesis/core"
	"github.com/poiesic/mimesis/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue_RequiresPipeline(t *testing.T) {
	_, err := NewQueue(nil)
	assert.ErrorIs(t, err, ErrPipelineRequired)
}

func TestQueue_SubmitReportsCompletion(t *testing.T) {
	p, _ := setupTestPipeline(t, mock.NewMockProvider())
	q, err := NewQueue(p, WithQueueWorkers(2), WithJobTimeout(time.Minute))
	require.NoError(t, err)
	defer q.Release()

	done := make(chan Job, 1)
	req := IngestRequest{
		PersonaName: "Queued",
		Documents:   []extract.Document{writeDoc(t, "q.txt", "Queued content.")},
	}
	id, err := q.Submit(req, func(job Job) { done <- job })
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	select {
	case job := <-done:
		assert.Equal(t, id, job.ID)
		assert.Equal(t, "Queued", job.Request.PersonaName)
		require.NoError(t, job.Err)
		require.NotNil(t, job.Report)
		assert.Equal(t, 1, job.Report.Indexed)
	case <-time.After(10 * time.Second):
		t.Fatal("callback not called")
	}
}

func TestQueue_SubmitReportsFailure(t *testing.T) {
	p, _ := setupTestPipeline(t, mock.NewMockProvider())
	q, err := NewQueue(p)
	require.NoError(t, err)
	defer q.Release()

	var got Job
	_, err = q.Submit(IngestRequest{PersonaName: "Nobody"}, func(job Job) { got = job })
	require.NoError(t, err)
	q.Wait()

	assert.ErrorIs(t, got.Err, core.ErrNoUsableContent)
}

func TestQueue_NilCallback(t *testing.T) {
	p, repos := setupTestPipeline(t, mock.NewMockProvider())
	q, err := NewQueue(p)
	require.NoError(t, err)
	defer q.Release()

	_, err = q.Submit(IngestRequest{
		PersonaName: "Silent",
		Documents:   []extract.Document{writeDoc(t, "s.txt", "Nobody is listening.")},
	}, nil)
	require.NoError(t, err)
	q.Wait()

	count, err := repos.Vectors.CountEntries(t.Context(), core.CollectionName("Silent"))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestQueue_SubmitAfterRelease(t *testing.T) {
	p, _ := setupTestPipeline(t, mock.NewMockProvider())
	q, err := NewQueue(p)
	require.NoError(t, err)

	q.Release()
	q.Release()

	_, err = q.Submit(IngestRequest{PersonaName: "Late"}, nil)
	assert.ErrorIs(t, err, ErrQueueClosed)
}
