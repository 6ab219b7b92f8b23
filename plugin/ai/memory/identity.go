package memory

import (
	"fmt"

	"github.com/google/uuid"
)

// Namespaces for deterministic id derivation. Memory record ids and
// chunk-group ids use distinct namespaces so the two id spaces can
// never collide, even for identical input strings.
var (
	memoryNamespace     = uuid.MustParse("6ba7b814-9dad-11d1-80b4-00c04fd430c1")
	chunkGroupNamespace = uuid.MustParse("6ba7b815-9dad-11d1-80b4-00c04fd430c2")
)

// MemoryID derives the stable id for a memory record from its owning
// persona, personality, and exact content. Writing the same content
// for the same owner always produces the same id, which is what makes
// the write path idempotent.
func MemoryID(personaID, personalityID, content string) string {
	return uuid.NewSHA1(memoryNamespace, identityKey(personaID, personalityID, content)).String()
}

// ChunkGroupID derives the stable group id for a chunked memory from
// the pre-chunk text. Every chunk of the same original text carries
// the same group id regardless of how the text was split.
func ChunkGroupID(personaID, personalityID, text string) string {
	return uuid.NewSHA1(chunkGroupNamespace, identityKey(personaID, personalityID, text)).String()
}

// chunkMemoryID derives the record id for one chunk. The chunk index
// is folded into the content key so that two chunks with identical
// text at different positions still get distinct ids.
func chunkMemoryID(personaID, personalityID string, index int, chunk string) string {
	return MemoryID(personaID, personalityID, fmt.Sprintf("chunk:%d:%s", index, chunk))
}

// identityKey joins the id components with a NUL separator so that
// ("ab","c") and ("a","bc") hash differently.
func identityKey(personaID, personalityID, content string) []byte {
	key := make([]byte, 0, len(personaID)+len(personalityID)+len(content)+2)
	key = append(key, personaID...)
	key = append(key, 0)
	key = append(key, personalityID...)
	key = append(key, 0)
	key = append(key, content...)
	return key
}
