package core

import (
	"slices"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Hand-written MUS serializers for the storage layer. Field order is part
// of the on-disk format: append new fields at the end only.
var (
	IDMUS        = idMUS{}
	DropMUS      = dropMUS{}
	ArtifactMUS  = artifactMUS{}
	EmbeddingMUS = embeddingMUS{}
)

type idMUS struct{}

func (idMUS) Marshal(v ID, bs []byte) int {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (idMUS) Unmarshal(bs []byte) (ID, int, error) {
	v, n, err := varint.Uint64.Unmarshal(bs)
	return ID(v), n, err
}

func (idMUS) Size(v ID) int {
	return varint.Uint64.Size(uint64(v))
}

// Timestamps are stored as Unix microseconds.

func marshalTime(v time.Time, bs []byte) int {
	return varint.Int64.Marshal(v.UnixMicro(), bs)
}

func unmarshalTime(bs []byte) (time.Time, int, error) {
	us, n, err := varint.Int64.Unmarshal(bs)
	if err != nil {
		return time.Time{}, n, err
	}
	return time.UnixMicro(us).UTC(), n, nil
}

func sizeTime(v time.Time) int {
	return varint.Int64.Size(v.UnixMicro())
}

func marshalStringSlice(v []string, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, s := range v {
		n += ord.String.Marshal(s, bs[n:])
	}
	return n
}

func unmarshalStringSlice(bs []byte) ([]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]string, length)
	for i := 0; i < length; i++ {
		s, sn, err := ord.String.Unmarshal(bs[n:])
		n += sn
		if err != nil {
			return nil, n, err
		}
		v[i] = s
	}
	return v, n, nil
}

func sizeStringSlice(v []string) int {
	size := varint.Int.Size(len(v))
	for _, s := range v {
		size += ord.String.Size(s)
	}
	return size
}

func marshalStringMap(v map[string]string, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, k := range sortedKeys(v) {
		n += ord.String.Marshal(k, bs[n:])
		n += ord.String.Marshal(v[k], bs[n:])
	}
	return n
}

func unmarshalStringMap(bs []byte) (map[string]string, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make(map[string]string, length)
	for i := 0; i < length; i++ {
		k, kn, err := ord.String.Unmarshal(bs[n:])
		n += kn
		if err != nil {
			return nil, n, err
		}
		val, vn, err := ord.String.Unmarshal(bs[n:])
		n += vn
		if err != nil {
			return nil, n, err
		}
		v[k] = val
	}
	return v, n, nil
}

func sizeStringMap(v map[string]string) int {
	size := varint.Int.Size(len(v))
	for k, val := range v {
		size += ord.String.Size(k)
		size += ord.String.Size(val)
	}
	return size
}

// sortedKeys keeps the map encoding deterministic so identical records
// serialize to identical bytes.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func marshalVector(v []float32, bs []byte) int {
	n := varint.Int.Marshal(len(v), bs)
	for _, f := range v {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalVector(bs []byte) ([]float32, int, error) {
	length, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	if length == 0 {
		return nil, n, nil
	}
	v := make([]float32, length)
	for i := 0; i < length; i++ {
		f, fn, err := raw.Float32.Unmarshal(bs[n:])
		n += fn
		if err != nil {
			return nil, n, err
		}
		v[i] = f
	}
	return v, n, nil
}

func sizeVector(v []float32) int {
	size := varint.Int.Size(len(v))
	for _, f := range v {
		size += raw.Float32.Size(f)
	}
	return size
}

type dropMUS struct{}

func (dropMUS) Marshal(v Drop, bs []byte) int {
	n := IDMUS.Marshal(v.Id, bs)
	n += varint.Int.Marshal(int(v.Kind), bs[n:])
	n += ord.String.Marshal(v.WireType, bs[n:])
	n += ord.String.Marshal(v.Payload, bs[n:])
	n += ord.String.Marshal(v.Note, bs[n:])
	n += ord.String.Marshal(v.SourceRef, bs[n:])
	n += marshalTime(v.ReceivedAt, bs[n:])
	n += varint.Int.Marshal(int(v.Status), bs[n:])
	n += ord.String.Marshal(v.Error, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (dropMUS) Unmarshal(bs []byte) (Drop, int, error) {
	var (
		v   Drop
		n   int
		err error
	)
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return v, n, err
	}
	kind, kn, err := varint.Int.Unmarshal(bs[n:])
	n += kn
	if err != nil {
		return v, n, err
	}
	v.Kind = DropKind(kind)
	fields := []struct {
		dst *string
	}{
		{&v.WireType}, {&v.Payload}, {&v.Note}, {&v.SourceRef},
	}
	for _, f := range fields {
		s, sn, err := ord.String.Unmarshal(bs[n:])
		n += sn
		if err != nil {
			return v, n, err
		}
		*f.dst = s
	}
	received, tn, err := unmarshalTime(bs[n:])
	n += tn
	if err != nil {
		return v, n, err
	}
	v.ReceivedAt = received
	status, sn, err := varint.Int.Unmarshal(bs[n:])
	n += sn
	if err != nil {
		return v, n, err
	}
	v.Status = DropStatus(status)
	errMsg, en, err := ord.String.Unmarshal(bs[n:])
	n += en
	if err != nil {
		return v, n, err
	}
	v.Error = errMsg
	if v.InsertedAt, tn, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + tn, err
	}
	n += tn
	if v.UpdatedAt, tn, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + tn, err
	}
	n += tn
	return v, n, nil
}

func (dropMUS) Size(v Drop) int {
	return IDMUS.Size(v.Id) +
		varint.Int.Size(int(v.Kind)) +
		ord.String.Size(v.WireType) +
		ord.String.Size(v.Payload) +
		ord.String.Size(v.Note) +
		ord.String.Size(v.SourceRef) +
		sizeTime(v.ReceivedAt) +
		varint.Int.Size(int(v.Status)) +
		ord.String.Size(v.Error) +
		sizeTime(v.InsertedAt) +
		sizeTime(v.UpdatedAt)
}

type artifactMUS struct{}

func (artifactMUS) Marshal(v Artifact, bs []byte) int {
	n := IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(string(v.Type), bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.Content, bs[n:])
	n += ord.String.Marshal(v.SourceURL, bs[n:])
	n += ord.String.Marshal(v.Author, bs[n:])
	n += marshalTime(v.CreatedAt, bs[n:])
	n += marshalStringSlice(v.Tags, bs[n:])
	n += marshalStringMap(v.Metadata, bs[n:])
	n += IDMUS.Marshal(v.DropId, bs[n:])
	n += marshalTime(v.InsertedAt, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (artifactMUS) Unmarshal(bs []byte) (Artifact, int, error) {
	var (
		v   Artifact
		n   int
		err error
	)
	if v.Id, n, err = IDMUS.Unmarshal(bs); err != nil {
		return v, n, err
	}
	typ, tn, err := ord.String.Unmarshal(bs[n:])
	n += tn
	if err != nil {
		return v, n, err
	}
	v.Type = ArtifactType(typ)
	fields := []*string{&v.Title, &v.Content, &v.SourceURL, &v.Author}
	for _, dst := range fields {
		s, sn, err := ord.String.Unmarshal(bs[n:])
		n += sn
		if err != nil {
			return v, n, err
		}
		*dst = s
	}
	if v.CreatedAt, tn, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + tn, err
	}
	n += tn
	tags, sn, err := unmarshalStringSlice(bs[n:])
	n += sn
	if err != nil {
		return v, n, err
	}
	v.Tags = tags
	meta, mn, err := unmarshalStringMap(bs[n:])
	n += mn
	if err != nil {
		return v, n, err
	}
	v.Metadata = meta
	dropID, dn, err := IDMUS.Unmarshal(bs[n:])
	n += dn
	if err != nil {
		return v, n, err
	}
	v.DropId = dropID
	if v.InsertedAt, tn, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + tn, err
	}
	n += tn
	if v.UpdatedAt, tn, err = unmarshalTime(bs[n:]); err != nil {
		return v, n + tn, err
	}
	n += tn
	return v, n, nil
}

func (artifactMUS) Size(v Artifact) int {
	return IDMUS.Size(v.Id) +
		ord.String.Size(string(v.Type)) +
		ord.String.Size(v.Title) +
		ord.String.Size(v.Content) +
		ord.String.Size(v.SourceURL) +
		ord.String.Size(v.Author) +
		sizeTime(v.CreatedAt) +
		sizeStringSlice(v.Tags) +
		sizeStringMap(v.Metadata) +
		IDMUS.Size(v.DropId) +
		sizeTime(v.InsertedAt) +
		sizeTime(v.UpdatedAt)
}

type embeddingMUS struct{}

func (embeddingMUS) Marshal(v Embedding, bs []byte) int {
	n := IDMUS.Marshal(v.ArtifactId, bs)
	n += ord.String.Marshal(v.ModelId, bs[n:])
	n += marshalVector(v.Vector, bs[n:])
	n += marshalTime(v.UpdatedAt, bs[n:])
	return n
}

func (embeddingMUS) Unmarshal(bs []byte) (Embedding, int, error) {
	var (
		v   Embedding
		n   int
		err error
	)
	if v.ArtifactId, n, err = IDMUS.Unmarshal(bs); err != nil {
		return v, n, err
	}
	model, mn, err := ord.String.Unmarshal(bs[n:])
	n += mn
	if err != nil {
		return v, n, err
	}
	v.ModelId = model
	vec, vn, err := unmarshalVector(bs[n:])
	n += vn
	if err != nil {
		return v, n, err
	}
	v.Vector = vec
	updated, tn, err := unmarshalTime(bs[n:])
	n += tn
	if err != nil {
		return v, n, err
	}
	v.UpdatedAt = updated
	return v, n, nil
}

func (embeddingMUS) Size(v Embedding) int {
	return IDMUS.Size(v.ArtifactId) +
		ord.String.Size(v.ModelId) +
		sizeVector(v.Vector) +
		sizeTime(v.UpdatedAt)
}
