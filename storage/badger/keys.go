package badger

import (
	"encoding/binary"

	"github.com/poiesic/mimesis/core"
)

// Key prefixes for different data types
const (
	personaPrefix    = "persona:"
	collectionPrefix = "coll:"
	vectorPrefix     = "vecent:"
	vectorIDSeq      = "vecentseq"
	vectorGenSeq     = "vecgenseq"
	sessionPrefix    = "sess:"
	sessionIDSeq     = "sessseq"
	messagePrefix    = "sessmsg:"
	messageIDSeq     = "sessmsgseq"
)

// makePersonaKey generates a key for a persona by exact name.
func makePersonaKey(name string) []byte {
	return append([]byte(personaPrefix), name...)
}

// makeCollectionKey generates a key for a collection's metadata record.
func makeCollectionKey(collection string) []byte {
	return append([]byte(collectionPrefix), collection...)
}

// makeVectorPrefix generates the prefix shared by all entries of a collection.
// Format: prefix:len(collection):collection
// The length keeps "a" from being a prefix of "ab".
func makeVectorPrefix(collection string) []byte {
	buf := make([]byte, 0, len(vectorPrefix)+2+len(collection))
	buf = append(buf, vectorPrefix...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(collection)))
	buf = append(buf, collection...)
	return buf
}

// makeGenerationPrefix generates the prefix of one generation of a
// collection's entries.
// Format: prefix:len(collection):collection:generation
func makeGenerationPrefix(collection string, gen uint64) []byte {
	return binary.BigEndian.AppendUint64(makeVectorPrefix(collection), gen)
}

// makeVectorKey generates a composite key for one collection entry.
// Format: prefix:len(collection):collection:generation:entryID
func makeVectorKey(collection string, gen uint64, id core.ID) []byte {
	// Write in BigEndian order so lexicographic sort works correctly
	return binary.BigEndian.AppendUint64(makeGenerationPrefix(collection, gen), uint64(id))
}

// makeSessionKey generates a key for a session by ID.
func makeSessionKey(id core.ID) []byte {
	return binary.BigEndian.AppendUint64([]byte(sessionPrefix), uint64(id))
}

// makeMessagePrefix generates the prefix shared by all messages of a session.
func makeMessagePrefix(sessionID core.ID) []byte {
	return binary.BigEndian.AppendUint64([]byte(messagePrefix), uint64(sessionID))
}

// makeMessageKey generates a composite key for one session message.
// Format: prefix:sessionID:messageID
func makeMessageKey(sessionID, messageID core.ID) []byte {
	return binary.BigEndian.AppendUint64(makeMessagePrefix(sessionID), uint64(messageID))
}
