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


// Package storage provides the storage abstraction layer for mimesis.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic:
//
//   - PersonaRepository: persona profiles with first-write-wins creation
//   - VectorRepository: named collections of embedded chunks
//   - SessionRepository: conversations and their ordered messages
//
// The storage/badger package implements all three over a single BadgerDB
// instance.
//
// # Usage
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//
//	personas := badger.NewPersonaRepository(backend)
//
// Tests use an in-memory backend:
//
//	repos, err := badger.NewMemoryRepositories()
//	defer repos.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
