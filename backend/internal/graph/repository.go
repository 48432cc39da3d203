package graph

import (
	"context"
	"fmt"

	"socialgraph/backend/internal/metrics"
	apperrors "socialgraph/backend/pkg/errors"
	"go.uber.org/zap"
)

// Repository handles all social graph operations
type Repository struct {
	exec    Executor
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures a Repository
type Option func(*Repository)

// WithMetrics counts upserts, deletes and merged edges
func WithMetrics(c *metrics.Collector) Option {
	return func(r *Repository) {
		r.metrics = c
	}
}

// NewRepository creates a new graph repository
func NewRepository(exec Executor, logger *zap.Logger, opts ...Option) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{
		exec:   exec,
		logger: logger.Named("graph"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetUser fetches one user by id
func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	query := `
		MATCH (u:User {id: $id})
		RETURN u.id AS id, u.name AS name, u.screen_name AS screen_name, u.sex AS sex, u.city AS city
	`

	rows, err := r.exec.Execute(ctx, Statement{
		Cypher: query,
		Params: map[string]any{"id": id},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if len(rows) == 0 {
		return nil, apperrors.NewNodeNotFound(string(LabelUser), id)
	}

	row := rows[0]
	return &User{
		ID:         getInt64FromRecord(row, "id"),
		Name:       getStringFromRecord(row, "name"),
		ScreenName: getStringFromRecord(row, "screen_name"),
		Sex:        getInt64FromRecord(row, "sex"),
		City:       getStringFromRecord(row, "city"),
	}, nil
}

// RunNamed executes a catalog query. An unknown name is not an error: it
// yields an empty result and a warning.
func (r *Repository) RunNamed(ctx context.Context, name string) ([]Record, error) {
	query, ok := Resolve(name)
	if !ok {
		r.logger.Warn("Unknown catalog query", zap.String("query", name))
		return []Record{}, nil
	}

	rows, err := r.exec.Execute(ctx, Statement{Cypher: query})
	if err != nil {
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return rows, nil
}

// RunNamedFlat executes a catalog query and converts rows to plain JSON values
func (r *Repository) RunNamedFlat(ctx context.Context, name string) ([]map[string]any, error) {
	rows, err := r.RunNamed(ctx, name)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, flattenRecord(row))
	}
	return out, nil
}

// CountUsers returns the number of User nodes
func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	return r.count(ctx, QueryUsersCount)
}

// CountGroups returns the number of Group nodes
func (r *Repository) CountGroups(ctx context.Context) (int64, error) {
	return r.count(ctx, QueryGroupsCount)
}

func (r *Repository) count(ctx context.Context, name string) (int64, error) {
	rows, err := r.RunNamed(ctx, name)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return getInt64FromRecord(rows[0], "count"), nil
}

// TopUsers returns the most-followed users, most followers first
func (r *Repository) TopUsers(ctx context.Context) ([]TopUser, error) {
	rows, err := r.RunNamed(ctx, QueryTopUsers)
	if err != nil {
		return nil, err
	}

	users := make([]TopUser, 0, len(rows))
	for _, row := range rows {
		users = append(users, TopUser{
			ID:             getInt64FromRecord(row, "id"),
			Name:           getStringFromRecord(row, "name"),
			FollowersCount: getInt64FromRecord(row, "followers_count"),
		})
	}
	return users, nil
}

// TopGroups returns the most-subscribed groups, most subscribers first
func (r *Repository) TopGroups(ctx context.Context) ([]TopGroup, error) {
	rows, err := r.RunNamed(ctx, QueryTopGroups)
	if err != nil {
		return nil, err
	}

	groups := make([]TopGroup, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, TopGroup{
			ID:               getInt64FromRecord(row, "id"),
			Name:             getStringFromRecord(row, "name"),
			SubscribersCount: getInt64FromRecord(row, "subscribers_count"),
		})
	}
	return groups, nil
}

// MutualFollowers returns every pair of users following each other
func (r *Repository) MutualFollowers(ctx context.Context) ([]MutualPair, error) {
	rows, err := r.RunNamed(ctx, QueryMutualFollowers)
	if err != nil {
		return nil, err
	}

	pairs := make([]MutualPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, MutualPair{
			UserID:   getInt64FromRecord(row, "user_id"),
			FriendID: getInt64FromRecord(row, "friend_id"),
		})
	}
	return pairs, nil
}

// ListNodes returns every node with its id and first label
func (r *Repository) ListNodes(ctx context.Context) ([]NodeSummary, error) {
	query := `MATCH (n) RETURN n.id AS id, head(labels(n)) AS label`

	rows, err := r.exec.Execute(ctx, Statement{Cypher: query})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	nodes := make([]NodeSummary, 0, len(rows))
	for _, row := range rows {
		nodes = append(nodes, NodeSummary{
			ID:    row["id"],
			Label: getStringFromRecord(row, "label"),
		})
	}
	return nodes, nil
}

// GetNode fetches a node with its outgoing relationships and their targets
func (r *Repository) GetNode(ctx context.Context, label Label, id int64) (*NodeDetail, error) {
	if _, err := ParseLabel(string(label)); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		MATCH (n:%s {id: $id})
		OPTIONAL MATCH (n)-[rel]->(m)
		RETURN n, rel, m
	`, label)

	rows, err := r.exec.Execute(ctx, Statement{
		Cypher: query,
		Params: map[string]any{"id": id},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get node: %w", err)
	}

	if len(rows) == 0 {
		return nil, apperrors.NewNodeNotFound(string(label), id)
	}

	node, ok := getNodeFromRecord(rows[0], "n")
	if !ok {
		return nil, apperrors.NewNodeNotFound(string(label), id)
	}

	detail := &NodeDetail{
		Node:          nodeView(node),
		Relationships: []RelationshipView{},
	}

	// A node without outgoing edges comes back as a single row with null rel and m
	for _, row := range rows {
		rel, ok := getRelationshipFromRecord(row, "rel")
		if !ok {
			continue
		}
		target, _ := getNodeFromRecord(row, "m")
		detail.Relationships = append(detail.Relationships, relationshipView(rel, target))
	}

	return detail, nil
}
