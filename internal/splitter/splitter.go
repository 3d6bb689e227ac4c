// Package splitter cuts source documents into overlapping, token-bounded
// chunks.
package splitter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/efebarandurmaz/codefinder/internal/document"
	"github.com/efebarandurmaz/codefinder/internal/logging"
	"github.com/google/uuid"
)

// ErrInvalidPolicy is returned for chunk sizes or overlaps that cannot be
// honoured.
var ErrInvalidPolicy = errors.New("invalid split policy")

// Policy bounds chunk size and overlap, both in tokenizer units.
type Policy struct {
	ChunkSize    int
	ChunkOverlap int
	Encoding     string
}

// DefaultPolicy is 1500 tokens with 200 overlap on cl100k_base.
func DefaultPolicy() Policy {
	return Policy{ChunkSize: 1500, ChunkOverlap: 200, Encoding: "cl100k_base"}
}

// Validate reports whether the policy can be applied.
func (p Policy) Validate() error {
	if p.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidPolicy, p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidPolicy, p.ChunkOverlap, p.ChunkSize)
	}
	return nil
}

// Splitter turns documents into chunks.
type Splitter struct {
	policy Policy
	logger *slog.Logger
	newID  func() string

	once    sync.Once
	tok     Tokenizer
	loadTok func() (Tokenizer, error)
	tokErr  error
}

// Option customizes a Splitter.
type Option func(*Splitter)

// WithTokenizer replaces the tiktoken encoding named by the policy.
func WithTokenizer(t Tokenizer) Option {
	return func(s *Splitter) {
		s.loadTok = func() (Tokenizer, error) { return t, nil }
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Splitter) { s.logger = l }
}

// WithIDFunc replaces the UUIDv4 chunk id generator.
func WithIDFunc(f func() string) Option {
	return func(s *Splitter) { s.newID = f }
}

// New creates a Splitter. The tokenizer is loaded on the first split.
func New(policy Policy, opts ...Option) *Splitter {
	s := &Splitter{
		policy: policy,
		newID:  uuid.NewString,
	}
	s.loadTok = func() (Tokenizer, error) {
		return NewTiktoken(policy.Encoding)
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = logging.OrDiscard(s.logger)
	return s
}

// SplitDocuments chunks every document. Any failure is logged and yields an
// empty result; callers treat that as nothing to ingest.
func (s *Splitter) SplitDocuments(ctx context.Context, docs []document.SourceDocument) []document.Chunk {
	chunks, err := s.split(ctx, docs)
	if err != nil {
		s.logger.Error("error splitting documents", "error", err)
		return []document.Chunk{}
	}
	return chunks
}

func (s *Splitter) split(ctx context.Context, docs []document.SourceDocument) ([]document.Chunk, error) {
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	tok, err := s.tokenizer()
	if err != nil {
		return nil, err
	}

	var out []document.Chunk
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, text := range s.splitText(tok, doc.Text) {
			out = append(out, document.Chunk{
				ID:         s.newID(),
				DocumentID: doc.ID,
				Index:      i,
				Text:       text,
				Source:     doc.URL,
				FileName:   doc.FileName,
				Path:       doc.Path,
				Repository: doc.Repository,
			})
		}
	}
	return out, nil
}

func (s *Splitter) tokenizer() (Tokenizer, error) {
	s.once.Do(func() {
		s.tok, s.tokErr = s.loadTok()
	})
	return s.tok, s.tokErr
}

type piece struct {
	text   string
	tokens int
}

var sentenceRe = regexp.MustCompile(`[^,.;。？！]+[,.;。？！]?`)

// splitFns are tried in order until a piece fits the chunk size. Each keeps
// separators attached so the pieces concatenate back to the input.
var splitFns = []func(string) []string{
	func(s string) []string { return strings.SplitAfter(s, "\n\n\n") },
	splitSentences,
	func(s string) []string { return strings.SplitAfter(s, " ") },
}

func splitSentences(s string) []string {
	locs := sentenceRe.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return []string{s}
	}
	parts := make([]string, 0, len(locs))
	prev := 0
	for _, loc := range locs {
		parts = append(parts, s[prev:loc[1]])
		prev = loc[1]
	}
	if prev < len(s) {
		parts[len(parts)-1] += s[prev:]
	}
	return parts
}

// splitText returns the trimmed, non-empty chunks of text.
func (s *Splitter) splitText(tok Tokenizer, text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := s.pieces(tok, text, 0)

	var chunks []string
	for _, c := range s.merge(pieces) {
		if c = strings.TrimSpace(c); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func (s *Splitter) pieces(tok Tokenizer, text string, level int) []piece {
	n := tok.Count(text)
	if n <= s.policy.ChunkSize {
		return []piece{{text: text, tokens: n}}
	}
	if level >= len(splitFns) {
		out := make([]piece, 0, len(text))
		for _, r := range text {
			out = append(out, piece{text: string(r), tokens: tok.Count(string(r))})
		}
		return out
	}

	var parts []string
	for _, p := range splitFns[level](text) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) <= 1 {
		return s.pieces(tok, text, level+1)
	}

	var out []piece
	for _, p := range parts {
		out = append(out, s.pieces(tok, p, level+1)...)
	}
	return out
}

// merge packs pieces greedily. Each chunk after the first opens with the
// trailing pieces of its predecessor totalling at most the overlap.
func (s *Splitter) merge(pieces []piece) []string {
	var (
		chunks []string
		cur    []piece
		total  int
		fresh  bool
	)
	for _, p := range pieces {
		if total+p.tokens > s.policy.ChunkSize && fresh {
			chunks = append(chunks, join(cur))
			cur, total = s.overlap(cur)
			fresh = false
		}
		for total+p.tokens > s.policy.ChunkSize && len(cur) > 0 {
			total -= cur[0].tokens
			cur = cur[1:]
		}
		cur = append(cur, p)
		total += p.tokens
		fresh = true
	}
	if fresh {
		chunks = append(chunks, join(cur))
	}
	return chunks
}

func (s *Splitter) overlap(cur []piece) ([]piece, int) {
	total := 0
	start := len(cur)
	for start > 0 && total+cur[start-1].tokens <= s.policy.ChunkOverlap {
		start--
		total += cur[start].tokens
	}
	return append([]piece(nil), cur[start:]...), total
}

func join(ps []piece) string {
	var b strings.Builder
	for _, p := range ps {
		b.WriteString(p.text)
	}
	return b.String()
}
