package inbox

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/origin-steward/steward/core"
)

// renderArchive writes the artifact as a Markdown file under
// archiveDir/YYYY-MM-DD/<artifact-id>.md, keyed by capture date.
func renderArchive(archiveDir string, capturedAt time.Time, artifact *core.Artifact) (string, error) {
	dayDir := filepath.Join(archiveDir, capturedAt.UTC().Format("2006-01-02"))
	if err := os.MkdirAll(dayDir, 0755); err != nil {
		return "", err
	}

	path := filepath.Join(dayDir, artifact.Id.String()+".md")
	if err := os.WriteFile(path, []byte(renderMarkdown(artifact)), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// renderMarkdown produces a front-matter header followed by the content.
func renderMarkdown(artifact *core.Artifact) string {
	var b strings.Builder

	b.WriteString("---\n")
	fmt.Fprintf(&b, "id: %s\n", artifact.Id)
	fmt.Fprintf(&b, "type: %s\n", artifact.Type)
	if artifact.Title != "" {
		fmt.Fprintf(&b, "title: %s\n", artifact.Title)
	}
	if artifact.SourceURL != "" {
		fmt.Fprintf(&b, "source: %s\n", artifact.SourceURL)
	}
	if artifact.Author != "" {
		fmt.Fprintf(&b, "author: %s\n", artifact.Author)
	}
	if !artifact.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "date: %s\n", artifact.CreatedAt.UTC().Format(time.RFC3339))
	}
	if len(artifact.Tags) > 0 {
		fmt.Fprintf(&b, "tags: %s\n", strings.Join(artifact.Tags, ", "))
	}
	b.WriteString("---\n\n")
	b.WriteString(artifact.Content)
	if !strings.HasSuffix(artifact.Content, "\n") {
		b.WriteString("\n")
	}

	return b.String()
}
