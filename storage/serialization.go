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

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/mimesis/core"
)

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, core.IDMUS.Size(id))
	core.IDMUS.Marshal(id, buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := core.IDMUS.Unmarshal(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTruncatedData, err)
	}
	return id, nil
}

// MarshalPersona serializes a Persona to bytes.
func MarshalPersona(persona *core.Persona) []byte {
	buf := make([]byte, core.PersonaMUS.Size(*persona))
	core.PersonaMUS.Marshal(*persona, buf)
	return buf
}

// UnmarshalPersona deserializes a Persona from bytes.
func UnmarshalPersona(data []byte) (*core.Persona, error) {
	persona, _, err := core.PersonaMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &persona, nil
}

// MarshalVectorEntry serializes a VectorEntry to bytes.
func MarshalVectorEntry(entry *core.VectorEntry) []byte {
	buf := make([]byte, core.VectorEntryMUS.Size(*entry))
	core.VectorEntryMUS.Marshal(*entry, buf)
	return buf
}

// UnmarshalVectorEntry deserializes a VectorEntry from bytes.
func UnmarshalVectorEntry(data []byte) (*core.VectorEntry, error) {
	entry, _, err := core.VectorEntryMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &entry, nil
}

// MarshalSession serializes a Session to bytes.
func MarshalSession(session *core.Session) []byte {
	buf := make([]byte, core.SessionMUS.Size(*session))
	core.SessionMUS.Marshal(*session, buf)
	return buf
}

// UnmarshalSession deserializes a Session from bytes.
func UnmarshalSession(data []byte) (*core.Session, error) {
	session, _, err := core.SessionMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &session, nil
}

// MarshalMessage serializes a Message to bytes.
func MarshalMessage(msg *core.Message) []byte {
	buf := make([]byte, core.MessageMUS.Size(*msg))
	core.MessageMUS.Marshal(*msg, buf)
	return buf
}

// UnmarshalMessage deserializes a Message from bytes.
func UnmarshalMessage(data []byte) (*core.Message, error) {
	msg, _, err := core.MessageMUS.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &msg, nil
}

// CollectionMeta is the stored record of a vector collection.
// Entries live under Generation; a replace writes a new generation and
// switches to it by rewriting this record.
type CollectionMeta struct {
	Name       string
	Dimension  int
	Generation uint64
	CreatedAt  time.Time
}

// MarshalCollectionMeta serializes a CollectionMeta to bytes.
func MarshalCollectionMeta(meta *CollectionMeta) []byte {
	size := ord.String.Size(meta.Name) +
		varint.Int.Size(meta.Dimension) +
		varint.Uint64.Size(meta.Generation) +
		core.TimeMUS.Size(meta.CreatedAt)
	buf := make([]byte, size)
	n := ord.String.Marshal(meta.Name, buf)
	n += varint.Int.Marshal(meta.Dimension, buf[n:])
	n += varint.Uint64.Marshal(meta.Generation, buf[n:])
	core.TimeMUS.Marshal(meta.CreatedAt, buf[n:])
	return buf
}

// UnmarshalCollectionMeta deserializes a CollectionMeta from bytes.
func UnmarshalCollectionMeta(data []byte) (*CollectionMeta, error) {
	var (
		meta   CollectionMeta
		n, n1  int
		err    error
		failed = func(err error) (*CollectionMeta, error) {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
	)
	if meta.Name, n, err = ord.String.Unmarshal(data); err != nil {
		return failed(err)
	}
	if meta.Dimension, n1, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return failed(err)
	}
	n += n1
	if meta.Generation, n1, err = varint.Uint64.Unmarshal(data[n:]); err != nil {
		return failed(err)
	}
	n += n1
	if meta.CreatedAt, _, err = core.TimeMUS.Unmarshal(data[n:]); err != nil {
		return failed(err)
	}
	return &meta, nil
}
