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


package badger

import "errors"

// Repositories bundles every repository over one backend.
type Repositories struct {
	Backend  *Backend
	Personas *PersonaRepository
	Vectors  *VectorRepository
	Sessions *SessionRepository
}

// NewRepositories builds all repositories over backend.
// On error, any repository already created is closed; backend is left open.
func NewRepositories(backend *Backend) (*Repositories, error) {
	vectors, err := NewVectorRepository(backend)
	if err != nil {
		return nil, err
	}

	sessions, err := NewSessionRepository(backend)
	if err != nil {
		vectors.Close()
		return nil, err
	}

	return &Repositories{
		Backend:  backend,
		Personas: NewPersonaRepository(backend),
		Vectors:  vectors,
		Sessions: sessions,
	}, nil
}

// Close closes the repositories and then the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Personas.Close(),
		r.Vectors.Close(),
		r.Sessions.Close(),
		r.Backend.Close(),
	)
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must call Close when done.
func NewMemoryRepositories() (*Repositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	repos, err := NewRepositories(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return repos, nil
}
