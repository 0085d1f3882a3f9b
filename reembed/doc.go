// Package reembed rewrites the vectors of a persona collection with a new
// or updated embedding model.
//
// Entries are paged in ID order, embedded in batches with retry and
// exponential backoff, normalized so cosine similarity stays valid, and
// written back in place. Chunk text and metadata are left untouched.
package reembed
