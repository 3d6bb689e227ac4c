package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	Owner         map[string]string `json:"owner"`
	Name          string            `json:"name"`
	FullName      string            `json:"full_name"`
	DefaultBranch string            `json:"default_branch"`
	HTMLURL       string            `json:"html_url"`
}

func repo(owner, name string) fakeRepo {
	return fakeRepo{
		Owner:         map[string]string{"login": owner},
		Name:          name,
		FullName:      owner + "/" + name,
		DefaultBranch: "main",
		HTMLURL:       "https://github.com/" + owner + "/" + name,
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func blobHandler(t *testing.T, content string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enc := base64.StdEncoding.EncodeToString([]byte(content))
		// GitHub wraps base64 content at 60 columns.
		if len(enc) > 60 {
			enc = enc[:60] + "\n" + enc[60:]
		}
		writeJSON(t, w, map[string]string{"content": enc, "encoding": "base64"})
	}
}

func newFakeGitHub(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	var srv *httptest.Server

	mux.HandleFunc("GET /users/octocat/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("per_page"))
		assert.Equal(t, "Bearer ghp_test", r.Header.Get("Authorization"))
		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, []fakeRepo{repo("octocat", "lib")})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/users/octocat/repos?per_page=100&page=2>; rel="next"`, srv.URL))
		writeJSON(t, w, []fakeRepo{repo("octocat", "app"), repo("someorg", "fork"), repo("octocat", "broken")})
	})
	mux.HandleFunc("GET /users/ghost/repos", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"boom"}`, http.StatusInternalServerError)
	})

	mux.HandleFunc("GET /repos/octocat/app/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))
		writeJSON(t, w, map[string]any{
			"sha": "tree",
			"tree": []map[string]string{
				{"path": "main.py", "type": "blob", "sha": "s1"},
				{"path": "pkg", "type": "tree", "sha": "t1"},
				{"path": "pkg/util.py", "type": "blob", "sha": "s2"},
				{"path": "README.md", "type": "blob", "sha": "s3"},
				{"path": "pkg/__init__.py", "type": "blob", "sha": "s4"},
			},
		})
	})
	mux.HandleFunc("GET /repos/octocat/app/git/blobs/s1", blobHandler(t, "import sys\n\nif __name__ == '__main__':\n    print(sys.argv)\n"))
	mux.HandleFunc("GET /repos/octocat/app/git/blobs/s2", blobHandler(t, "def add(a, b):\n    return a + b\n"))
	mux.HandleFunc("GET /repos/octocat/app/git/blobs/s3", func(w http.ResponseWriter, r *http.Request) {
		t.Error("README.md should not be fetched")
	})
	mux.HandleFunc("GET /repos/octocat/app/git/blobs/s4", blobHandler(t, "   \n"))

	mux.HandleFunc("GET /repos/octocat/broken/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Server Error"}`, http.StatusInternalServerError)
	})

	mux.HandleFunc("GET /repos/octocat/lib/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"tree":      []map[string]string{{"path": "lib.py", "type": "blob", "sha": "s5"}},
			"truncated": true,
		})
	})
	mux.HandleFunc("GET /repos/octocat/lib/git/blobs/s5", blobHandler(t, "VERSION = '1.0'\n"))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(t *testing.T, srv *httptest.Server, logs *bytes.Buffer) *Fetcher {
	t.Helper()
	f, err := New(context.Background(), Options{
		Token:   "ghp_test",
		BaseURL: srv.URL,
		Logger:  slog.New(slog.NewTextHandler(logs, nil)),
	})
	require.NoError(t, err)
	return f
}

func TestFetchDocuments(t *testing.T) {
	var logs bytes.Buffer
	f := newTestFetcher(t, newFakeGitHub(t), &logs)

	docs := f.FetchDocuments(context.Background(), "octocat")
	require.Len(t, docs, 3)

	assert.Equal(t, "main.py", docs[0].Path)
	assert.Equal(t, "import sys\n\nif __name__ == '__main__':\n    print(sys.argv)\n", docs[0].Text)
	assert.Equal(t, "s1", docs[0].ID)
	assert.Equal(t, "octocat/app", docs[0].Repository)
	assert.Equal(t, "https://github.com/octocat/app/blob/main/main.py", docs[0].URL)

	assert.Equal(t, "pkg/util.py", docs[1].Path)
	assert.Equal(t, "util.py", docs[1].FileName)
	assert.Equal(t, "main", docs[1].Branch)

	assert.Equal(t, "octocat/lib", docs[2].Repository)

	out := logs.String()
	assert.Contains(t, out, "loading files from octocat/app")
	assert.Contains(t, out, "skipping repository someorg/fork")
	assert.Contains(t, out, "failed to load repository")
	assert.Contains(t, out, "skipping empty document")
	assert.Contains(t, out, "pkg/__init__.py")
}

func TestFetchDocuments_TruncatedTreeWarns(t *testing.T) {
	var logs bytes.Buffer
	f := newTestFetcher(t, newFakeGitHub(t), &logs)

	docs := f.FetchDocuments(context.Background(), "octocat")
	require.Len(t, docs, 3)
	assert.Equal(t, "lib.py", docs[2].Path, "entries of a truncated tree are still indexed")

	out := logs.String()
	assert.Contains(t, out, "level=WARN msg=\"tree truncated by GitHub")
	assert.Contains(t, out, "repository=octocat/lib")
	assert.NotContains(t, out, "repository=octocat/app branch=main entries")
}

func TestFetchDocuments_ListingFailureYieldsEmpty(t *testing.T) {
	var logs bytes.Buffer
	f := newTestFetcher(t, newFakeGitHub(t), &logs)

	docs := f.FetchDocuments(context.Background(), "ghost")
	assert.Empty(t, docs)
	assert.Contains(t, logs.String(), "error fetching repositories")
}

func TestAllowed(t *testing.T) {
	f, err := New(context.Background(), Options{Extensions: []string{".py", ".go"}})
	require.NoError(t, err)
	assert.True(t, f.allowed("a/b.py"))
	assert.True(t, f.allowed("main.GO"))
	assert.False(t, f.allowed("notes.md"))
	assert.False(t, f.allowed("Makefile"))
}

func TestNew_DefaultsToPython(t *testing.T) {
	f, err := New(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{".py"}, f.extensions)
}
