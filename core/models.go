package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/google/uuid"
)

// ID is a unique identifier for domain entities.
// Drop IDs are derived from the capture content, artifact IDs from the
// source identity where one exists, otherwise they are random.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs; this is what makes drop
// re-delivery and source-keyed artifacts idempotent.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// RandomID generates a random ID for entities with no stable source identity.
func RandomID() ID {
	u := uuid.New()
	return ID(binary.LittleEndian.Uint64(u[:8]))
}

// String renders the ID as fixed-width hex. Used for archive filenames and
// the export API, where IDs must sort and compare as plain strings.
func (id ID) String() string {
	const hexdigits = "0123456789abcdef"
	var buf [16]byte
	v := uint64(id)
	for i := 15; i >= 0; i-- {
		buf[i] = hexdigits[v&0xf]
		v >>= 4
	}
	return string(buf[:])
}

// DropKind identifies the payload shape of a raw capture.
type DropKind int

const (
	// KindURL means the payload is a URL to fetch.
	KindURL DropKind = iota + 1
	// KindText means the payload is raw text.
	KindText
	// KindImage means the payload is a base64-encoded image.
	KindImage
)

// DropStatus tracks a drop through the ingestion state machine.
type DropStatus int

const (
	// StatusPending means the drop has been observed but not claimed.
	StatusPending DropStatus = iota + 1
	// StatusProcessing means a dispatcher worker holds the claim.
	StatusProcessing
	// StatusCompleted means an artifact was created. Terminal.
	StatusCompleted
	// StatusFailed means extraction failed and the drop was archived with
	// its error. Terminal; failed drops are never retried automatically.
	StatusFailed
)

// String returns the wire name of the status.
func (s DropStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the status is a terminal state.
func (s DropStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ClassifiedType is the routing decision for a drop. Each variant maps to
// exactly one connector in the dispatch table.
type ClassifiedType int

const (
	// ClassifiedWebURL routes to the web connector.
	ClassifiedWebURL ClassifiedType = iota + 1
	// ClassifiedSocialURL routes to the social connector.
	ClassifiedSocialURL
	// ClassifiedText routes to the text connector. Also the fallback when
	// classification is ambiguous.
	ClassifiedText
	// ClassifiedImage routes to the image connector.
	ClassifiedImage
)

// String returns the name of the classified type.
func (c ClassifiedType) String() string {
	switch c {
	case ClassifiedWebURL:
		return "url-web"
	case ClassifiedSocialURL:
		return "url-social"
	case ClassifiedText:
		return "text"
	case ClassifiedImage:
		return "image"
	default:
		return "unknown"
	}
}

// ArtifactType categorizes normalized artifacts for export and filtering.
type ArtifactType string

const (
	// ArtifactArticle is a web page reduced to its main content.
	ArtifactArticle ArtifactType = "article"
	// ArtifactSocialPost is a short-form social post.
	ArtifactSocialPost ArtifactType = "social-post"
	// ArtifactNote is raw captured text.
	ArtifactNote ArtifactType = "note"
	// ArtifactImageRef references an image stored in the blob area.
	ArtifactImageRef ArtifactType = "image-ref"
)

// Drop is a raw capture event before normalization. Once its status leaves
// pending, only Status and Error may change.
type Drop struct {
	Id         ID
	Kind       DropKind
	WireType   string // original schema "type" value; "tweet" hints url-social
	Payload    string
	Note       string
	SourceRef  string // inbox entry name; provenance for archival
	ReceivedAt time.Time
	Status     DropStatus
	Error      string
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// Artifact is a normalized, searchable knowledge unit derived from a Drop.
// Content is always plain or Markdown text suitable for embedding; binary
// payloads are referenced by path in Metadata, never inlined.
type Artifact struct {
	Id         ID
	Type       ArtifactType
	Title      string
	Content    string
	SourceURL  string
	Author     string
	CreatedAt  time.Time
	Tags       []string
	Metadata   map[string]string
	DropId     ID // back-reference to the originating drop
	InsertedAt time.Time
	UpdatedAt  time.Time
}

// HasTag reports whether the artifact carries the given tag.
func (a *Artifact) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Embedding is derived data: the vector representation of an artifact's
// content under a specific model. There is exactly one per
// (artifact, model); recomputing overwrites in place.
type Embedding struct {
	ArtifactId ID
	ModelId    string
	Vector     []float32
	UpdatedAt  time.Time
}

// SimilarityMatch is an artifact hit from vector similarity search.
type SimilarityMatch struct {
	ArtifactId ID
	Score      float32
}

// SearchResult pairs an artifact with its relevance score.
type SearchResult struct {
	Artifact *Artifact
	Score    float32
}

// DailyCount is one bucket of the capture-volume histogram.
type DailyCount struct {
	Date  string // YYYY-MM-DD
	Count int
}
