package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/origin-steward/steward/core"
)

// Key prefixes for different data types
const (
	dropPrefix         = "drop"
	dropDatePrefix     = "dropd"
	artifactPrefix     = "art"
	artifactDatePrefix = "artd"
	artifactDropPrefix = "artdrop"
	embeddingPrefix    = "emb"
)

// makeDropKey generates a key for a drop by ID.
func makeDropKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", dropPrefix, id))
}

// makeDropDateKey generates a composite key for the drop arrival index.
// Format: prefix:timestamp:id, timestamps in BigEndian so lexicographic
// iteration yields arrival order.
func makeDropDateKey(receivedAt time.Time, id core.ID) []byte {
	return makeDateKey(dropDatePrefix, receivedAt, id)
}

// makePartialDropDateKey generates a partial key for arrival range scans.
func makePartialDropDateKey(receivedAt time.Time) []byte {
	return makePartialDateKey(dropDatePrefix, receivedAt)
}

// makeArtifactKey generates a key for an artifact by ID.
func makeArtifactKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", artifactPrefix, id))
}

// makeArtifactDateKey generates a composite key for the creation-time index.
func makeArtifactDateKey(createdAt time.Time, id core.ID) []byte {
	return makeDateKey(artifactDatePrefix, createdAt, id)
}

// makePartialArtifactDateKey generates a partial key for creation range scans.
func makePartialArtifactDateKey(createdAt time.Time) []byte {
	return makePartialDateKey(artifactDatePrefix, createdAt)
}

// makeArtifactDropKey generates the drop-provenance index key. At most one
// artifact per drop: the key is unique per drop ID.
func makeArtifactDropKey(dropID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", artifactDropPrefix, dropID))
}

// makeEmbeddingKey generates a key for an embedding by (artifact, model).
func makeEmbeddingKey(artifactID core.ID, modelID string) []byte {
	return []byte(fmt.Sprintf("%s:%016x:%s", embeddingPrefix, uint64(artifactID), modelID))
}

// makePartialEmbeddingKey generates a prefix matching all embeddings of an
// artifact, regardless of model.
func makePartialEmbeddingKey(artifactID core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%016x:", embeddingPrefix, uint64(artifactID)))
}

func makeDateKey(prefix string, ts time.Time, id core.ID) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+16) // 8 bytes timestamp + 8 bytes ID
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ts.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// hasPrefix checks if a byte slice has a given prefix
func hasPrefix(s, prefix []byte) bool {
	return len(s) >= len(prefix) && string(s[:len(prefix)]) == string(prefix)
}

func makePartialDateKey(prefix string, ts time.Time) []byte {
	prefixBytes := []byte(prefix + ":")
	buf := make([]byte, len(prefixBytes)+8)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(ts.UnixMicro()))
	return buf
}
