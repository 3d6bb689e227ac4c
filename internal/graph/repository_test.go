package graph

import (
	"testing"

	"github.com/efebarandurmaz/codefinder/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	docs := []document.SourceDocument{
		{ID: "s1", Repository: "octocat/app", Path: "main.py", URL: "u1"},
		{ID: "s2", Repository: "octocat/lib", Path: "lib.py", URL: "u2"},
		{ID: "s3", Repository: "octocat/app", Path: "pkg/util.py", URL: "u3"},
	}
	chunks := []document.Chunk{
		{ID: "c1", Repository: "octocat/app", Path: "main.py"},
		{ID: "c2", Repository: "octocat/app", Path: "main.py"},
		{ID: "c3", Repository: "octocat/lib", Path: "lib.py"},
		{ID: "c4", Repository: "octocat/app", Path: "pkg/util.py"},
	}

	p := Build("octocat", docs, chunks)
	assert.Equal(t, "octocat", p.User)
	require.Len(t, p.Repositories, 2)

	app := p.Repositories[0]
	assert.Equal(t, "octocat/app", app.FullName)
	require.Len(t, app.Files, 2)
	assert.Equal(t, FileNode{Path: "main.py", URL: "u1", BlobSHA: "s1", ChunkIDs: []string{"c1", "c2"}}, app.Files[0])
	assert.Equal(t, []string{"c4"}, app.Files[1].ChunkIDs)

	assert.Equal(t, "octocat/lib", p.Repositories[1].FullName)
	assert.Equal(t, 4, p.ChunkCount())
}

func TestBuild_FileWithoutChunks(t *testing.T) {
	p := Build("octocat", []document.SourceDocument{{Repository: "octocat/app", Path: "empty.py"}}, nil)
	require.Len(t, p.Repositories, 1)
	assert.Empty(t, p.Repositories[0].Files[0].ChunkIDs)
	assert.Zero(t, p.ChunkCount())
}
