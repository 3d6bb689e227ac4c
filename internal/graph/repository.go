// Package graph records where every indexed chunk came from:
// user, repository, file and chunk nodes.
package graph

import (
	"context"

	"github.com/efebarandurmaz/codefinder/internal/document"
)

// Repository provides graph storage for ingestion provenance.
type Repository interface {
	// StoreProvenance merges the user, repository, file and chunk nodes.
	StoreProvenance(ctx context.Context, p *Provenance) error
	// ChunksForFile returns the chunk ids indexed from a file.
	ChunksForFile(ctx context.Context, repository, path string) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}

// Provenance is the tree written after one ingestion run.
type Provenance struct {
	User         string
	Repositories []RepositoryNode
}

type RepositoryNode struct {
	FullName string
	Files    []FileNode
}

type FileNode struct {
	Path     string
	URL      string
	BlobSHA  string
	ChunkIDs []string
}

// Build groups chunks under their files and repositories, keeping the order
// in which documents were fetched.
func Build(user string, docs []document.SourceDocument, chunks []document.Chunk) *Provenance {
	byDoc := make(map[string][]string)
	for _, c := range chunks {
		key := c.Repository + "\x00" + c.Path
		byDoc[key] = append(byDoc[key], c.ID)
	}

	p := &Provenance{User: user}
	repoIndex := make(map[string]int)
	for _, d := range docs {
		i, ok := repoIndex[d.Repository]
		if !ok {
			i = len(p.Repositories)
			repoIndex[d.Repository] = i
			p.Repositories = append(p.Repositories, RepositoryNode{FullName: d.Repository})
		}
		p.Repositories[i].Files = append(p.Repositories[i].Files, FileNode{
			Path:     d.Path,
			URL:      d.URL,
			BlobSHA:  d.ID,
			ChunkIDs: byDoc[d.Repository+"\x00"+d.Path],
		})
	}
	return p
}

// ChunkCount returns the number of chunk nodes in p.
func (p *Provenance) ChunkCount() int {
	n := 0
	for _, r := range p.Repositories {
		for _, f := range r.Files {
			n += len(f.ChunkIDs)
		}
	}
	return n
}
