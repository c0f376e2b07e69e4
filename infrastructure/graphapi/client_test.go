package graphapi_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"crmgraph/domain/graph"
	"crmgraph/infrastructure/config"
	"crmgraph/infrastructure/graphapi"
	"crmgraph/infrastructure/persistence/memory"
	"crmgraph/interfaces/http/rest"
	"crmgraph/pkg/auth"
	"crmgraph/pkg/errors"
)

func newTestServer(t *testing.T, cfg *config.Config) (*httptest.Server, *memory.GraphStore) {
	t.Helper()

	store := memory.NewGraphStore(nil)
	for _, id := range []graph.NodeID{"a", "b", "c"} {
		_, err := store.AddNode(graph.GraphNode{ID: id})
		require.NoError(t, err)
	}

	srv := httptest.NewServer(rest.NewRouter(store, cfg, zap.NewNop()).Setup())
	t.Cleanup(srv.Close)
	return srv, store
}

func newTestClient(url, token string) *graphapi.Client {
	return graphapi.NewClient(url, token, 5*time.Second, nil)
}

func openConfig() *config.Config {
	return &config.Config{Environment: "test"}
}

func TestClientFetchGraph(t *testing.T) {
	srv, store := newTestServer(t, openConfig())
	_, err := store.CreateEdge("a", "b", "friend")
	require.NoError(t, err)

	client := newTestClient(srv.URL, "")
	data, err := client.FetchGraph(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Nodes, 3)
	require.Len(t, data.Edges, 1)
	assert.Equal(t, "friend", data.Edges[0].Label)
}

func TestClientCreateAndDeleteEdge(t *testing.T) {
	srv, _ := newTestServer(t, openConfig())
	client := newTestClient(srv.URL, "")
	ctx := context.Background()

	edge, err := client.CreateEdge(ctx, "a", "b", "friend")
	require.NoError(t, err)
	assert.False(t, edge.ID.IsZero())
	assert.Equal(t, graph.NodeID("a"), edge.SourceID)

	data, err := client.FetchGraph(ctx)
	require.NoError(t, err)
	require.Len(t, data.Edges, 1)

	require.NoError(t, client.DeleteEdge(ctx, edge.ID))

	data, err = client.FetchGraph(ctx)
	require.NoError(t, err)
	assert.Empty(t, data.Edges)
}

func TestClientErrorMapping(t *testing.T) {
	srv, store := newTestServer(t, openConfig())
	client := newTestClient(srv.URL, "")
	ctx := context.Background()

	// Self-edges are rejected before they reach the store.
	_, err := client.CreateEdge(ctx, "a", "a", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = client.CreateEdge(ctx, "a", "missing", "")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	_, createErr := store.CreateEdge("a", "b", "")
	require.NoError(t, createErr)
	_, err = client.CreateEdge(ctx, "b", "a", "")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	err = client.DeleteEdge(ctx, "nope")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestClientUnreachableServer(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1", "")

	_, err := client.FetchGraph(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
}

func TestClientBearerAuth(t *testing.T) {
	cfg := &config.Config{
		Environment:        "test",
		AuthEnabled:        true,
		JWTSecret:          "test-secret",
		JWTIssuer:          "crmgraph",
		RateLimitPerMinute: 1000,
	}
	srv, _ := newTestServer(t, cfg)

	// No token: rejected.
	_, err := newTestClient(srv.URL, "").FetchGraph(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsUnauthorized(err))

	// Valid token: accepted.
	gen := auth.NewJWTGenerator(auth.JWTConfig{SecretKey: "test-secret", Issuer: "crmgraph"}, time.Hour)
	token, err := gen.GenerateToken("user-1")
	require.NoError(t, err)

	data, err := newTestClient(srv.URL, token).FetchGraph(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Nodes, 3)
}
