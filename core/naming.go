package core

import (
	"fmt"
	"strings"
	"unicode"
)

const collectionPrefix = "persona_"

// PersonaIDFromName returns the durable identifier for a persona name.
// Names are compared exactly, so "Jane Doe" and "jane doe" differ.
func PersonaIDFromName(name string) ID {
	return IDFromContent("persona:" + name)
}

// Slug lowercases name and collapses each run of whitespace to a single
// underscore. It is a display aid only; distinct names may share a slug.
func Slug(name string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range strings.TrimSpace(name) {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('_')
			}
			inSpace = true
			continue
		}
		inSpace = false
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// CollectionName returns the vector collection that holds a persona's chunks.
// The hex suffix comes from PersonaIDFromName and keeps names that slug
// identically in separate collections.
func CollectionName(name string) string {
	return fmt.Sprintf("%s%s_%016x", collectionPrefix, Slug(name), uint64(PersonaIDFromName(name)))
}
