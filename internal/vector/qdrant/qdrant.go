// Package qdrant implements vector.Store over the Qdrant gRPC API.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/efebarandurmaz/codefinder/internal/vector"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"
)

// DefaultGRPCPort is Qdrant's gRPC listener.
const DefaultGRPCPort = 6334

// Options configures the connection.
type Options struct {
	// URL is the Qdrant endpoint as configured for the REST API, e.g.
	// https://xyz.cloud.qdrant.io:6333. Only scheme and host are used.
	URL      string
	APIKey   string
	GRPCPort int
}

// Store implements vector.Store using Qdrant.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
}

// New dials Qdrant. The connection is TLS when the URL scheme is https.
func New(opts Options, dialOpts ...grpc.DialOption) (*Store, error) {
	target, secure, err := Target(opts.URL, opts.GRPCPort)
	if err != nil {
		return nil, err
	}

	if secure {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})))
	} else {
		dialOpts = append(dialOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}
	if opts.APIKey != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(apiKeyCredentials{key: opts.APIKey, secure: secure}))
	}

	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("qdrant connect: %w", err)
	}
	return NewFromConn(conn), nil
}

// NewFromConn wraps an existing connection. Close closes conn.
func NewFromConn(conn *grpc.ClientConn) *Store {
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
	}
}

// Target converts a Qdrant URL into a gRPC dial target. A zero port selects
// DefaultGRPCPort. Bare hosts are accepted and treated as plaintext.
func Target(raw string, port int) (target string, secure bool, err error) {
	if port == 0 {
		port = DefaultGRPCPort
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("qdrant: empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("qdrant: parsing URL %q: %w", raw, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", false, fmt.Errorf("qdrant: URL %q has no host", raw)
	}
	switch u.Scheme {
	case "https", "grpcs":
		secure = true
	case "http", "grpc":
	default:
		return "", false, fmt.Errorf("qdrant: unsupported scheme %q", u.Scheme)
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), secure, nil
}

func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	resp, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return nil, wrapErr("list collections", err)
	}
	names := make([]string, 0, len(resp.GetCollections()))
	for _, c := range resp.GetCollections() {
		names = append(names, c.GetName())
	}
	return names, nil
}

func (s *Store) CreateCollection(ctx context.Context, name string, dim int) error {
	_, err := s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(dim), Distance: pb.Distance_Cosine},
		}},
	})
	return wrapErr("create collection", err)
}

// Upsert writes all records in one request with wait=true.
func (s *Store) Upsert(ctx context.Context, name string, records []vector.Record) error {
	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Vector}}},
			Payload: encodePayload(r.Payload),
		}
	}

	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: name,
		Wait:           proto.Bool(true),
		Points:         points,
	})
	return wrapErr("upsert", err)
}

func (s *Store) Search(ctx context.Context, name string, vec []float32, k int) ([]vector.SearchResult, error) {
	resp, err := s.points.Search(ctx, &pb.SearchPoints{
		CollectionName: name,
		Vector:         vec,
		Limit:          uint64(k),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, wrapErr("search", err)
	}

	results := make([]vector.SearchResult, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		results[i] = vector.SearchResult{
			ID:      pointID(pt.GetId()),
			Score:   pt.GetScore(),
			Payload: decodePayload(pt.GetPayload()),
		}
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context, name string) (int, error) {
	resp, err := s.points.Count(ctx, &pb.CountPoints{CollectionName: name, Exact: proto.Bool(true)})
	if err != nil {
		return 0, wrapErr("count", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func pointID(id *pb.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

var _ vector.Store = (*Store)(nil)
