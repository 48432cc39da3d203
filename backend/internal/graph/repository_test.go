package graph

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"socialgraph/backend/internal/metrics"
	apperrors "socialgraph/backend/pkg/errors"
)

// fakeExecutor records every statement and answers with respond
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []Statement
	respond func(stmt Statement) ([]Record, error)
}

func (f *fakeExecutor) Execute(_ context.Context, stmt Statement) ([]Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, stmt)
	f.mu.Unlock()
	if f.respond == nil {
		return []Record{}, nil
	}
	return f.respond(stmt)
}

func (f *fakeExecutor) statements() []Statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Statement(nil), f.calls...)
}

func TestRepository_GetUser(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		return []Record{{"id": int64(1), "name": "A", "screen_name": "a", "sex": int64(1), "city": "X"}}, nil
	}}
	repo := NewRepository(exec, nil)

	user, err := repo.GetUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, &User{ID: 1, Name: "A", ScreenName: "a", Sex: 1, City: "X"}, user)

	calls := exec.statements()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(1), calls[0].Params["id"])
	assert.False(t, calls[0].Write)
}

func TestRepository_GetUser_NotFound(t *testing.T) {
	repo := NewRepository(&fakeExecutor{}, nil)

	_, err := repo.GetUser(context.Background(), 404)
	require.Error(t, err)

	var nf *apperrors.ErrNodeNotFound
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "User", nf.Label)
	assert.Equal(t, int64(404), nf.ID)
}

func TestRepository_GetUser_QueryFailure(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		return nil, apperrors.NewGraphQueryFailed(stmt.Cypher, errors.New("connection reset"))
	}}
	repo := NewRepository(exec, nil)

	_, err := repo.GetUser(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeGraph))
}

func TestRepository_RunNamed_Unknown(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewRepository(exec, nil)

	rows, err := repo.RunNamed(context.Background(), "most_lonely_users")
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	assert.Empty(t, exec.statements())
}

func TestRepository_Counts(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		if strings.Contains(stmt.Cypher, ":User") {
			return []Record{{"count": int64(12)}}, nil
		}
		return []Record{{"count": int64(3)}}, nil
	}}
	repo := NewRepository(exec, nil)

	users, err := repo.CountUsers(context.Background())
	require.NoError(t, err)
	groups, err := repo.CountGroups(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(12), users)
	assert.Equal(t, int64(3), groups)

	calls := exec.statements()
	require.Len(t, calls, 2)
	usersQuery, _ := Resolve(QueryUsersCount)
	assert.Equal(t, usersQuery, calls[0].Cypher)
}

func TestRepository_TopUsersAndGroups(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		if strings.Contains(stmt.Cypher, "followers_count") {
			return []Record{
				{"id": int64(2), "name": "B", "followers_count": int64(9)},
				{"id": int64(1), "name": "A", "followers_count": int64(4)},
			}, nil
		}
		return []Record{{"id": int64(10), "name": "Go", "subscribers_count": int64(7)}}, nil
	}}
	repo := NewRepository(exec, nil)

	users, err := repo.TopUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TopUser{{ID: 2, Name: "B", FollowersCount: 9}, {ID: 1, Name: "A", FollowersCount: 4}}, users)

	groups, err := repo.TopGroups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TopGroup{{ID: 10, Name: "Go", SubscribersCount: 7}}, groups)
}

func TestRepository_MutualFollowers(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		return []Record{
			{"user_id": int64(1), "friend_id": int64(2)},
			{"user_id": int64(2), "friend_id": int64(1)},
		}, nil
	}}
	repo := NewRepository(exec, nil)

	pairs, err := repo.MutualFollowers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []MutualPair{{UserID: 1, FriendID: 2}, {UserID: 2, FriendID: 1}}, pairs)
}

func TestRepository_ListNodes(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		return []Record{
			{"id": int64(1), "label": "User"},
			{"id": int64(10), "label": "Group"},
			{"id": nil, "label": nil},
		}, nil
	}}
	repo := NewRepository(exec, nil)

	nodes, err := repo.ListNodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []NodeSummary{
		{ID: int64(1), Label: "User"},
		{ID: int64(10), Label: "Group"},
		{ID: nil, Label: ""},
	}, nodes)
}

func TestRepository_GetNode(t *testing.T) {
	user := dbtype.Node{Labels: []string{"User"}, Props: map[string]any{"id": int64(1), "name": "A"}}
	friend := dbtype.Node{Labels: []string{"User"}, Props: map[string]any{"id": int64(2)}}
	group := dbtype.Node{Labels: []string{"Group"}, Props: map[string]any{"id": int64(10)}}

	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		return []Record{
			{"n": user, "rel": dbtype.Relationship{Type: "FOLLOWS"}, "m": friend},
			{"n": user, "rel": dbtype.Relationship{Type: "SUBSCRIBED"}, "m": group},
		}, nil
	}}
	repo := NewRepository(exec, nil)

	detail, err := repo.GetNode(context.Background(), LabelUser, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"User"}, detail.Node.Labels)
	assert.Equal(t, "A", detail.Node.Properties["name"])
	require.Len(t, detail.Relationships, 2)
	assert.Equal(t, "FOLLOWS", detail.Relationships[0].Type)
	assert.Equal(t, int64(2), detail.Relationships[0].Target.Properties["id"])
	assert.Equal(t, "SUBSCRIBED", detail.Relationships[1].Type)
	assert.Equal(t, []string{"Group"}, detail.Relationships[1].Target.Labels)

	assert.Contains(t, exec.statements()[0].Cypher, "MATCH (n:User {id: $id})")
}

func TestRepository_GetNode_NoRelationships(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		return []Record{{"n": dbtype.Node{Labels: []string{"Group"}}, "rel": nil, "m": nil}}, nil
	}}
	repo := NewRepository(exec, nil)

	detail, err := repo.GetNode(context.Background(), LabelGroup, 10)
	require.NoError(t, err)
	assert.NotNil(t, detail.Relationships)
	assert.Empty(t, detail.Relationships)
	assert.NotNil(t, detail.Node.Properties)
}

func TestRepository_GetNode_NotFound(t *testing.T) {
	repo := NewRepository(&fakeExecutor{}, nil)

	_, err := repo.GetNode(context.Background(), LabelGroup, 10)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))
}

func TestRepository_GetNode_InvalidLabel(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewRepository(exec, nil)

	_, err := repo.GetNode(context.Background(), "User) DETACH DELETE (n", 1)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))
	assert.Empty(t, exec.statements())
}

func TestRepository_UpsertNode_UserWithEdges(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		if strings.Contains(stmt.Cypher, "UNWIND") {
			to := stmt.Params["to"].([]int64)
			return []Record{{"linked": int64(len(to))}}, nil
		}
		return []Record{}, nil
	}}
	collector := metrics.NewCollector("test")
	repo := NewRepository(exec, nil, WithMetrics(collector))

	props := map[string]any{"id": int64(1), "name": "A", "city": "X"}
	result, err := repo.UpsertNode(context.Background(), NodeInput{
		Label:      LabelUser,
		ID:         1,
		Props:      props,
		Follows:    []int64{2, 3},
		Subscribed: []int64{10},
	})
	require.NoError(t, err)
	assert.Equal(t, &UpsertResult{Follows: 2, Subscribed: 1}, result)

	calls := exec.statements()
	require.Len(t, calls, 3)

	assert.True(t, calls[0].Write)
	assert.Contains(t, calls[0].Cypher, "MERGE (n:User {id: $id})")
	assert.Equal(t, map[string]any{"name": "A", "city": "X"}, calls[0].Params["props"])
	assert.Contains(t, props, "id", "caller's map must not be modified")

	assert.Contains(t, calls[1].Cypher, "MERGE (a)-[:FOLLOWS]->(b)")
	assert.Contains(t, calls[1].Cypher, "MATCH (b:User {id: target_id})")
	assert.Contains(t, calls[2].Cypher, "MERGE (a)-[:SUBSCRIBED]->(b)")
	assert.Contains(t, calls[2].Cypher, "MATCH (b:Group {id: target_id})")

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.NodesUpserted.WithLabelValues("User")))
	assert.Equal(t, 2.0, testutil.ToFloat64(collector.EdgesCreated.WithLabelValues("FOLLOWS")))
}

func TestRepository_UpsertNode_Rejects(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewRepository(exec, nil)

	_, err := repo.UpsertNode(context.Background(), NodeInput{Label: "Admin) DETACH DELETE (x", ID: 1})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	_, err = repo.UpsertNode(context.Background(), NodeInput{Label: LabelGroup, ID: 1, Follows: []int64{2}})
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeValidation))

	assert.Empty(t, exec.statements())
}

func TestRepository_CreateUserAndGroup(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewRepository(exec, nil)

	require.NoError(t, repo.CreateUser(context.Background(), User{ID: 5, Name: "E", ScreenName: "e", Sex: 2, City: "Y"}))
	require.NoError(t, repo.CreateGroup(context.Background(), Group{ID: 50, Name: "G", ScreenName: "g"}))

	calls := exec.statements()
	require.Len(t, calls, 2)
	assert.Equal(t, map[string]any{"name": "E", "screen_name": "e", "sex": int64(2), "city": "Y"}, calls[0].Params["props"])
	assert.Contains(t, calls[1].Cypher, "MERGE (n:Group {id: $id})")
}

func TestRepository_FollowAndSubscribe(t *testing.T) {
	exec := &fakeExecutor{}
	repo := NewRepository(exec, nil)

	require.NoError(t, repo.Follow(context.Background(), 1, 2))
	require.NoError(t, repo.Subscribe(context.Background(), 1, 10))

	calls := exec.statements()
	require.Len(t, calls, 2)
	assert.Equal(t, int64(1), calls[0].Params["from"])
	assert.Equal(t, []int64{2}, calls[0].Params["to"])
	assert.Contains(t, calls[1].Cypher, "SUBSCRIBED")
}

func TestRepository_DeleteNode_RelationshipsFirst(t *testing.T) {
	exec := &fakeExecutor{}
	collector := metrics.NewCollector("test")
	repo := NewRepository(exec, nil, WithMetrics(collector))

	require.NoError(t, repo.DeleteNode(context.Background(), LabelUser, 12345))

	calls := exec.statements()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0].Cypher, "MATCH (n:User {id: $id})-[rel]-()")
	assert.Contains(t, calls[0].Cypher, "DELETE rel")
	assert.Contains(t, calls[1].Cypher, "DELETE n")
	assert.Equal(t, int64(12345), calls[1].Params["id"])
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.NodesDeleted.WithLabelValues("User")))
}

func TestRepository_DeleteNode_StopsOnFailure(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		return nil, apperrors.NewGraphQueryFailed(stmt.Cypher, errors.New("unavailable"))
	}}
	repo := NewRepository(exec, nil)

	err := repo.DeleteNode(context.Background(), LabelGroup, 1)
	require.Error(t, err)
	assert.Len(t, exec.statements(), 1)
}

func TestInstrument(t *testing.T) {
	exec := &fakeExecutor{}
	assert.Same(t, exec, Instrument(exec, nil))

	collector := metrics.NewCollector("test")
	wrapped := Instrument(exec, collector)

	_, err := wrapped.Execute(context.Background(), Statement{Cypher: "RETURN 1"})
	require.NoError(t, err)
	_, err = wrapped.Execute(context.Background(), Statement{Cypher: "CREATE (n)", Write: true})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Queries.WithLabelValues("read", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.Queries.WithLabelValues("write", "ok")))
}

func TestEnsureSchema(t *testing.T) {
	exec := &fakeExecutor{respond: func(stmt Statement) ([]Record, error) {
		if strings.Contains(stmt.Cypher, "Group") {
			return nil, errors.New("constraint conflict")
		}
		return []Record{}, nil
	}}

	err := EnsureSchema(context.Background(), exec, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint conflict")
	assert.Len(t, exec.statements(), len(schemaStatements))
}

// Integration tests below require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.
func TestRepository_Integration_UserLifecycle(t *testing.T) {
	exec := createTestExecutor(t)
	repo := NewRepository(exec, nil)
	ctx := context.Background()

	base := time.Now().UnixNano() % 1_000_000_000
	a, b, g := base, base+1, base+2

	defer func() {
		for _, id := range []int64{a, b} {
			_ = repo.DeleteNode(ctx, LabelUser, id)
		}
		_ = repo.DeleteNode(ctx, LabelGroup, g)
	}()

	require.NoError(t, repo.CreateUser(ctx, User{ID: a, Name: "A", ScreenName: "a", Sex: 1, City: "X"}))
	require.NoError(t, repo.CreateUser(ctx, User{ID: b, Name: "B", ScreenName: "b", Sex: 2, City: "Y"}))
	require.NoError(t, repo.CreateGroup(ctx, Group{ID: g, Name: "G", ScreenName: "g"}))
	require.NoError(t, repo.Follow(ctx, a, b))
	require.NoError(t, repo.Follow(ctx, b, a))
	require.NoError(t, repo.Subscribe(ctx, a, g))

	user, err := repo.GetUser(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, &User{ID: a, Name: "A", ScreenName: "a", Sex: 1, City: "X"}, user)

	detail, err := repo.GetNode(ctx, LabelUser, a)
	require.NoError(t, err)
	assert.Len(t, detail.Relationships, 2)

	pairs, err := repo.MutualFollowers(ctx)
	require.NoError(t, err)
	assert.Contains(t, pairs, MutualPair{UserID: a, FriendID: b})

	require.NoError(t, repo.DeleteNode(ctx, LabelUser, a))
	_, err = repo.GetUser(ctx, a)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound))

	// second delete is a no-op
	require.NoError(t, repo.DeleteNode(ctx, LabelUser, a))

	detail, err = repo.GetNode(ctx, LabelUser, b)
	require.NoError(t, err)
	assert.Empty(t, detail.Relationships)
}

func createTestExecutor(t *testing.T) *Neo4jExecutor {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	uri := getTestEnv("NEO4J_URI", "")
	if uri == "" {
		t.Skip("NEO4J_URI not set")
	}

	ctx := context.Background()
	driver, err := Connect(ctx, uri, getTestEnv("NEO4J_USER", "neo4j"), getTestEnv("NEO4J_PASSWORD", "password"))
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}

	exec := NewNeo4jExecutor(driver, "")
	t.Cleanup(func() { _ = exec.Close(context.Background()) })
	return exec
}
