package qdrant

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/efebarandurmaz/codefinder/internal/vector"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeQdrant struct {
	mu          sync.Mutex
	collections map[string]*pb.VectorParams
	upserts     []*pb.UpsertPoints
	points      []*pb.PointStruct
	apiKeys     []string
	listErr     error
}

func newFake() *fakeQdrant {
	return &fakeQdrant{collections: make(map[string]*pb.VectorParams)}
}

func (f *fakeQdrant) recordKey(ctx context.Context) {
	md, _ := metadata.FromIncomingContext(ctx)
	f.apiKeys = append(f.apiKeys, md.Get("api-key")...)
}

func (f *fakeQdrant) List(ctx context.Context, _ *pb.ListCollectionsRequest) (*pb.ListCollectionsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recordKey(ctx)
	if f.listErr != nil {
		return nil, f.listErr
	}
	resp := &pb.ListCollectionsResponse{}
	for name := range f.collections {
		resp.Collections = append(resp.Collections, &pb.CollectionDescription{Name: name})
	}
	return resp, nil
}

func (f *fakeQdrant) Create(_ context.Context, req *pb.CreateCollection) (*pb.CollectionOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[req.GetCollectionName()]; ok {
		return nil, status.Error(codes.AlreadyExists, "exists")
	}
	f.collections[req.GetCollectionName()] = req.GetVectorsConfig().GetParams()
	return &pb.CollectionOperationResponse{Result: true}, nil
}

func (f *fakeQdrant) Upsert(_ context.Context, req *pb.UpsertPoints) (*pb.PointsOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[req.GetCollectionName()]; !ok {
		return nil, status.Error(codes.NotFound, "no collection")
	}
	f.upserts = append(f.upserts, req)
	f.points = append(f.points, req.GetPoints()...)
	return &pb.PointsOperationResponse{}, nil
}

func (f *fakeQdrant) Search(_ context.Context, req *pb.SearchPoints) (*pb.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	resp := &pb.SearchResponse{}
	for i, p := range f.points {
		if uint64(i) >= req.GetLimit() {
			break
		}
		resp.Result = append(resp.Result, &pb.ScoredPoint{Id: p.GetId(), Payload: p.GetPayload(), Score: 1 - float32(i)*0.1})
	}
	return resp, nil
}

func (f *fakeQdrant) Count(_ context.Context, _ *pb.CountPoints) (*pb.CountResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &pb.CountResponse{Result: &pb.CountResult{Count: uint64(len(f.points))}}, nil
}

// collectionsServer and pointsServer expose fakeQdrant as the two gRPC
// services; each embeds only its own Unimplemented server so that methods
// shared by name across services (Delete, Get) are not ambiguous.
type collectionsServer struct {
	pb.UnimplementedCollectionsServer
	f *fakeQdrant
}

func (s collectionsServer) List(ctx context.Context, req *pb.ListCollectionsRequest) (*pb.ListCollectionsResponse, error) {
	return s.f.List(ctx, req)
}

func (s collectionsServer) Create(ctx context.Context, req *pb.CreateCollection) (*pb.CollectionOperationResponse, error) {
	return s.f.Create(ctx, req)
}

type pointsServer struct {
	pb.UnimplementedPointsServer
	f *fakeQdrant
}

func (s pointsServer) Upsert(ctx context.Context, req *pb.UpsertPoints) (*pb.PointsOperationResponse, error) {
	return s.f.Upsert(ctx, req)
}

func (s pointsServer) Search(ctx context.Context, req *pb.SearchPoints) (*pb.SearchResponse, error) {
	return s.f.Search(ctx, req)
}

func (s pointsServer) Count(ctx context.Context, req *pb.CountPoints) (*pb.CountResponse, error) {
	return s.f.Count(ctx, req)
}

func startFake(t *testing.T, fake *fakeQdrant) func(context.Context, string) (net.Conn, error) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	pb.RegisterCollectionsServer(srv, collectionsServer{f: fake})
	pb.RegisterPointsServer(srv, pointsServer{f: fake})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
}

func newTestStore(t *testing.T, fake *fakeQdrant) *Store {
	t.Helper()
	dialer := startFake(t, fake)
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	s := NewFromConn(conn)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testRecord(id string) vector.Record {
	v := make([]float32, vector.Dimension)
	v[0] = 1
	return vector.Record{
		ID:     id,
		Vector: v,
		Payload: vector.Payload{
			Text:       "def handler(event): return 200",
			DocumentID: id,
			Metadata: vector.Metadata{
				QdrantID: id,
				Source:   "https://github.com/octocat/app/blob/main/handler.py",
				FileName: "handler.py",
			},
		},
	}
}

func TestEnsureCollection_CreatesOnceWithCosine(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	m := vector.NewCollectionManager(newTestStore(t, fake), nil)

	created, err := m.EnsureCollection(ctx, "code")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.EnsureCollection(ctx, "code")
	require.NoError(t, err)
	assert.False(t, created)

	require.Len(t, fake.collections, 1)
	params := fake.collections["code"]
	assert.Equal(t, uint64(vector.Dimension), params.GetSize())
	assert.Equal(t, pb.Distance_Cosine, params.GetDistance())
}

func TestEnsureCollection_UnavailableIsSwallowed(t *testing.T) {
	fake := newFake()
	fake.listErr = status.Error(codes.Unavailable, "connection refused")
	m := vector.NewCollectionManager(newTestStore(t, fake), nil)

	created, err := m.EnsureCollection(context.Background(), "code")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestEnsureCollection_PermissionDeniedPropagates(t *testing.T) {
	fake := newFake()
	fake.listErr = status.Error(codes.PermissionDenied, "bad key")
	m := vector.NewCollectionManager(newTestStore(t, fake), nil)

	_, err := m.EnsureCollection(context.Background(), "code")
	require.Error(t, err)
	assert.NotErrorIs(t, err, vector.ErrResponseHandling)
}

func TestUpsert_WaitsAndRoundTripsPayload(t *testing.T) {
	ctx := context.Background()
	fake := newFake()
	s := newTestStore(t, fake)
	require.NoError(t, s.CreateCollection(ctx, "code", vector.Dimension))

	rec := testRecord("5f0c6a4e-6d0e-4bde-9b57-3c1a2f1b9e01")
	require.NoError(t, s.Upsert(ctx, "code", []vector.Record{rec}))

	require.Len(t, fake.upserts, 1)
	assert.True(t, fake.upserts[0].GetWait())

	n, err := s.Count(ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := s.Search(ctx, "code", rec.Vector, 2)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, rec.ID, results[0].ID)
	assert.Equal(t, rec.Payload, results[0].Payload)
}

func TestUpsert_MissingCollection(t *testing.T) {
	s := newTestStore(t, newFake())
	err := s.Upsert(context.Background(), "nope", []vector.Record{testRecord("a")})
	assert.ErrorIs(t, err, vector.ErrCollectionNotFound)
}

func TestNew_SendsAPIKey(t *testing.T) {
	fake := newFake()
	dialer := startFake(t, fake)

	s, err := New(Options{URL: "http://localhost:6333", APIKey: "secret"}, grpc.WithContextDialer(dialer))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.ListCollections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"secret"}, fake.apiKeys)
}

func TestTarget(t *testing.T) {
	tests := []struct {
		raw    string
		port   int
		want   string
		secure bool
		err    bool
	}{
		{raw: "https://xyz.cloud.qdrant.io:6333", want: "xyz.cloud.qdrant.io:6334", secure: true},
		{raw: "http://localhost:6333", want: "localhost:6334"},
		{raw: "localhost", port: 7000, want: "localhost:7000"},
		{raw: "qdrant:6333", want: "qdrant:6334"},
		{raw: "", err: true},
		{raw: "ftp://host", err: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, secure, err := Target(tt.raw, tt.port)
			if tt.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.secure, secure)
		})
	}
}
