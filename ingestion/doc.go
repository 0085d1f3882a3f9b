// Package ingestion turns a persona's documents into a persona profile and
// a searchable vector collection.
//
// The Pipeline type manages one ingestion run:
//   - Extracting text from files and URLs, skipping unusable inputs
//   - Splitting the text into overlapping chunks
//   - Summarizing the persona from a bounded prefix of the text
//   - Embedding the chunks into the persona's collection
//
// Summarization and indexing run concurrently on worker pools. A failed
// summary is a warning on the Report; a failed embedding batch fails the run.
// Queue runs requests in the background and reports each finished Job to a
// callback.
package ingestion
