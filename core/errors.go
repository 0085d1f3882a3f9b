// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "errors"

// Ingestion and chat failure kinds. Components wrap these with %w so
// callers can branch with errors.Is.
var (
	// ErrUnsupportedFormat indicates a document type the extractor cannot read.
	// Absorbed per file: the file is skipped.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrNoUsableContent indicates no text survived extraction or chunking.
	ErrNoUsableContent = errors.New("no usable content")

	// ErrSummarizationFailed indicates the persona description could not be generated.
	// Absorbed: indexing proceeds and no profile is written.
	ErrSummarizationFailed = errors.New("persona summarization failed")

	// ErrIndexingFailed indicates a chunk batch could not be embedded or stored.
	ErrIndexingFailed = errors.New("indexing failed")

	// ErrPersonaNotFound indicates a chat referenced a persona with no profile.
	ErrPersonaNotFound = errors.New("persona not found")

	// ErrRetrievalUnavailable indicates the similarity lookup failed.
	// Absorbed: the prompt is built without context.
	ErrRetrievalUnavailable = errors.New("retrieval unavailable")

	// ErrGeneratorFailed indicates the reply could not be generated.
	ErrGeneratorFailed = errors.New("generator failed")

	// ErrSessionNotFound indicates an unknown session identifier.
	ErrSessionNotFound = errors.New("session not found")
)

// Domain validation errors
var (
	// ErrInvalidPersonaName indicates an empty or whitespace-only persona name.
	ErrInvalidPersonaName = errors.New("invalid persona name")

	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidTimestamp indicates a timestamp is in the future.
	ErrInvalidTimestamp = errors.New("timestamp cannot be in the future")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidRole indicates an unknown message role.
	ErrInvalidRole = errors.New("invalid role")
)
