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

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// MUS serializers for the stored records. Fields are written in declaration
// order and records carry no version tag.

// ErrMalformedRecord is returned when a length prefix cannot be satisfied by
// the remaining bytes.
var ErrMalformedRecord = errors.New("malformed record")

var (
	IDMUS          = idMUS{}
	TimeMUS        = timeMUS{}
	PersonaMUS     = personaMUS{}
	VectorEntryMUS = vectorEntryMUS{}
	MessageMUS     = messageMUS{}
	SessionMUS     = sessionMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	u, n, err := varint.Uint64.Unmarshal(bs)
	return ID(u), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

// timeMUS stores seconds and nanoseconds since the Unix epoch and decodes to
// UTC. The zero time round-trips.
type timeMUS struct{}

func (timeMUS) Marshal(v time.Time, bs []byte) (n int) {
	n = varint.Int64.Marshal(v.Unix(), bs)
	n += varint.Int.Marshal(v.Nanosecond(), bs[n:])
	return
}

func (timeMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	sec, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	nsec, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	return time.Unix(sec, int64(nsec)).UTC(), n, nil
}

func (timeMUS) Size(v time.Time) int {
	return varint.Int64.Size(v.Unix()) + varint.Int.Size(v.Nanosecond())
}

type personaMUS struct{}

func (personaMUS) Marshal(v Persona, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Name, bs[n:])
	n += ord.String.Marshal(v.Description, bs[n:])
	n += TimeMUS.Marshal(v.CreatedAt, bs[n:])
	return
}

func (personaMUS) Unmarshal(bs []byte) (v Persona, n int, err error) {
	var n1 int
	if v.ID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	v.Name, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Description, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (personaMUS) Size(v Persona) int {
	return IDMUS.Size(v.ID) +
		ord.String.Size(v.Name) +
		ord.String.Size(v.Description) +
		TimeMUS.Size(v.CreatedAt)
}

// vectorEntryMUS packs the vector as fixed-width float bits
// and the metadata as length-prefixed pairs in key order.
type vectorEntryMUS struct{}

func (vectorEntryMUS) Marshal(v VectorEntry, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += IDMUS.Marshal(v.SourceID, bs[n:])
	n += ord.String.Marshal(v.Text, bs[n:])
	n += varint.Int.Marshal(len(v.Vector), bs[n:])
	for _, f := range v.Vector {
		n += raw.Uint32.Marshal(math.Float32bits(f), bs[n:])
	}
	n += marshalStringMap(v.Metadata, bs[n:])
	return
}

func (vectorEntryMUS) Unmarshal(bs []byte) (v VectorEntry, n int, err error) {
	var n1 int
	if v.ID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	v.SourceID, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	length, n1, err := varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length < 0 || length*4 > len(bs)-n {
		err = fmt.Errorf("%w: vector of %d floats", ErrMalformedRecord, length)
		return
	}
	if length > 0 {
		v.Vector = make([]float32, length)
		for i := range v.Vector {
			var bits uint32
			bits, n1, err = raw.Uint32.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
			v.Vector[i] = math.Float32frombits(bits)
		}
	}
	v.Metadata, n1, err = unmarshalStringMap(bs[n:])
	n += n1
	return
}

func (vectorEntryMUS) Size(v VectorEntry) int {
	size := IDMUS.Size(v.ID) + IDMUS.Size(v.SourceID) + ord.String.Size(v.Text)
	size += varint.Int.Size(len(v.Vector)) + len(v.Vector)*raw.Uint32.Size(0)
	return size + sizeStringMap(v.Metadata)
}

type messageMUS struct{}

func (messageMUS) Marshal(v Message, bs []byte) (n int) {
	n = ord.String.Marshal(string(v.Role), bs)
	n += ord.String.Marshal(v.Content, bs[n:])
	n += TimeMUS.Marshal(v.Timestamp, bs[n:])
	n += varint.Int.Marshal(len(v.RetrievalContext), bs[n:])
	for _, s := range v.RetrievalContext {
		n += ord.String.Marshal(s, bs[n:])
	}
	n += varint.Int.Marshal(len(v.RetrievalSources), bs[n:])
	for _, id := range v.RetrievalSources {
		n += IDMUS.Marshal(id, bs[n:])
	}
	return
}

func (messageMUS) Unmarshal(bs []byte) (v Message, n int, err error) {
	var (
		n1   int
		role string
	)
	if role, n, err = ord.String.Unmarshal(bs); err != nil {
		return
	}
	v.Role = Role(role)
	v.Content, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}

	count, n1, err := unmarshalLength(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > 0 {
		v.RetrievalContext = make([]string, count)
		for i := range v.RetrievalContext {
			v.RetrievalContext[i], n1, err = ord.String.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}

	count, n1, err = unmarshalLength(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if count > 0 {
		v.RetrievalSources = make([]ID, count)
		for i := range v.RetrievalSources {
			v.RetrievalSources[i], n1, err = IDMUS.Unmarshal(bs[n:])
			n += n1
			if err != nil {
				return
			}
		}
	}
	return
}

func (messageMUS) Size(v Message) int {
	size := ord.String.Size(string(v.Role)) + ord.String.Size(v.Content) + TimeMUS.Size(v.Timestamp)
	size += varint.Int.Size(len(v.RetrievalContext))
	for _, s := range v.RetrievalContext {
		size += ord.String.Size(s)
	}
	size += varint.Int.Size(len(v.RetrievalSources))
	for _, id := range v.RetrievalSources {
		size += IDMUS.Size(id)
	}
	return size
}

type sessionMUS struct{}

func (sessionMUS) Marshal(v Session, bs []byte) (n int) {
	n = IDMUS.Marshal(v.ID, bs)
	n += ord.String.Marshal(v.Owner, bs[n:])
	n += ord.String.Marshal(v.Config.Model, bs[n:])
	n += raw.Uint64.Marshal(math.Float64bits(v.Config.Temperature), bs[n:])
	n += varint.Int.Marshal(v.Config.MaxTokens, bs[n:])
	n += varint.Int.Marshal(v.Config.RetrievalK, bs[n:])
	n += ord.Bool.Marshal(v.Config.UseRetrieval, bs[n:])
	n += TimeMUS.Marshal(v.CreatedAt, bs[n:])
	n += TimeMUS.Marshal(v.UpdatedAt, bs[n:])
	return
}

func (sessionMUS) Unmarshal(bs []byte) (v Session, n int, err error) {
	var (
		n1   int
		bits uint64
	)
	if v.ID, n, err = IDMUS.Unmarshal(bs); err != nil {
		return
	}
	v.Owner, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Config.Model, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	bits, n1, err = raw.Uint64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Config.Temperature = math.Float64frombits(bits)
	v.Config.MaxTokens, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Config.RetrievalK, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Config.UseRetrieval, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.CreatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = TimeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (sessionMUS) Size(v Session) int {
	return IDMUS.Size(v.ID) +
		ord.String.Size(v.Owner) +
		ord.String.Size(v.Config.Model) +
		raw.Uint64.Size(0) +
		varint.Int.Size(v.Config.MaxTokens) +
		varint.Int.Size(v.Config.RetrievalK) +
		ord.Bool.Size(v.Config.UseRetrieval) +
		TimeMUS.Size(v.CreatedAt) +
		TimeMUS.Size(v.UpdatedAt)
}

// unmarshalLength reads a count and rejects values the remaining bytes
// cannot hold, assuming at least one byte per element.
func unmarshalLength(bs []byte) (length, n int, err error) {
	length, n, err = varint.Int.Unmarshal(bs)
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		err = fmt.Errorf("%w: length %d", ErrMalformedRecord, length)
	}
	return
}

func marshalStringMap(m map[string]string, bs []byte) (n int) {
	n = varint.Int.Marshal(len(m), bs)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(m[k], bs[n:])
	}
	return
}

func unmarshalStringMap(bs []byte) (m map[string]string, n int, err error) {
	count, n, err := unmarshalLength(bs)
	if err != nil || count == 0 {
		return
	}
	m = make(map[string]string, count)
	for range count {
		var (
			k, v string
			n1   int
		)
		k, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		v, n1, err = ord.String.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
		m[k] = v
	}
	return
}

func sizeStringMap(m map[string]string) int {
	size := varint.Int.Size(len(m))
	for k, v := range m {
		size += ord.String.Size(k) + ord.String.Size(v)
	}
	return size
}
