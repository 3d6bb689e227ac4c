// Package document defines the source files and chunks that flow through
// ingestion.
package document

// SourceDocument is one fetched source file.
type SourceDocument struct {
	ID         string `json:"id"` // git blob SHA
	Text       string `json:"text"`
	Repository string `json:"repository"` // owner/name
	Owner      string `json:"owner"`
	Branch     string `json:"branch"`
	Path       string `json:"path"`
	FileName   string `json:"file_name"`
	URL        string `json:"url"`
}

// Chunk is a bounded slice of a SourceDocument's text.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Text       string `json:"text"`
	Source     string `json:"source"`
	FileName   string `json:"file_name"`
	Path       string `json:"path"`
	Repository string `json:"repository"`
}

// Repositories returns the distinct repository names in docs, in first-seen
// order.
func Repositories(docs []SourceDocument) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range docs {
		if d.Repository == "" || seen[d.Repository] {
			continue
		}
		seen[d.Repository] = true
		out = append(out, d.Repository)
	}
	return out
}
