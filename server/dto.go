package server

import (
	"time"

	"github.com/origin-steward/steward/core"
	"github.com/origin-steward/steward/search"
)

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query   string         `json:"query"`
	K       int            `json:"k,omitempty"`
	Filters *SearchFilters `json:"filters,omitempty"`
}

// SearchFilters narrows search results by artifact attributes.
type SearchFilters struct {
	Types []string   `json:"types,omitempty"`
	Tags  []string   `json:"tags,omitempty"`
	Since *time.Time `json:"since,omitempty"`
	Until *time.Time `json:"until,omitempty"`
}

func (f *SearchFilters) toDomain() search.Filters {
	if f == nil {
		return search.Filters{}
	}
	filters := search.Filters{Tags: f.Tags}
	for _, t := range f.Types {
		filters.Types = append(filters.Types, core.ArtifactType(t))
	}
	if f.Since != nil {
		filters.Since = *f.Since
	}
	if f.Until != nil {
		filters.Until = *f.Until
	}
	return filters
}

// SearchResponse is the body of a successful POST /search.
type SearchResponse struct {
	Results []SearchHit `json:"results"`
}

// SearchHit pairs an exported artifact with its relevance score.
type SearchHit struct {
	Artifact ArtifactExport `json:"artifact"`
	Score    float32        `json:"score"`
}

// ArtifactExport is the wire representation of an artifact.
type ArtifactExport struct {
	Id        string            `json:"id"`
	Type      string            `json:"type"`
	Title     string            `json:"title,omitempty"`
	Content   string            `json:"content"`
	SourceURL string            `json:"source_url,omitempty"`
	Author    string            `json:"author,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Tags      []string          `json:"tags"`
	Metadata  map[string]string `json:"metadata"`
}

func exportArtifact(a *core.Artifact) ArtifactExport {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return ArtifactExport{
		Id:        a.Id.String(),
		Type:      string(a.Type),
		Title:     a.Title,
		Content:   a.Content,
		SourceURL: a.SourceURL,
		Author:    a.Author,
		CreatedAt: a.CreatedAt,
		Tags:      tags,
		Metadata:  metadata,
	}
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Drops          map[string]int `json:"drops"`
	Artifacts      int            `json:"artifacts"`
	LastReceivedAt *time.Time     `json:"last_received_at,omitempty"`
	LastArtifactAt *time.Time     `json:"last_artifact_at,omitempty"`
	Daily          []DailyBucket  `json:"daily"`
}

// DailyBucket is one day of the capture-volume histogram.
type DailyBucket struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// ErrorResponse is the body of any non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
