package graph

import (
	"context"
	"fmt"

	apperrors "socialgraph/backend/pkg/errors"
	"go.uber.org/zap"
)

// ============================================================================
// Node Operations
// ============================================================================

// UpsertNode merges a node by label and id, sets the supplied properties and
// then merges the requested FOLLOWS and SUBSCRIBED edges. The steps run as
// separate statements, so a failure part way leaves the earlier ones applied.
func (r *Repository) UpsertNode(ctx context.Context, in NodeInput) (*UpsertResult, error) {
	if _, err := ParseLabel(string(in.Label)); err != nil {
		return nil, err
	}
	if in.Label != LabelUser && (len(in.Follows) > 0 || len(in.Subscribed) > 0) {
		return nil, apperrors.NewInvalidInput("relationships", "follows and subscribed are only valid for User nodes")
	}

	// id is the merge key and never part of the property set
	props := make(map[string]any, len(in.Props))
	for k, v := range in.Props {
		if k != "id" {
			props[k] = v
		}
	}

	query := fmt.Sprintf(`
		MERGE (n:%s {id: $id})
		SET n += $props
	`, in.Label)

	if _, err := r.exec.Execute(ctx, Statement{
		Cypher: query,
		Params: map[string]any{"id": in.ID, "props": props},
		Write:  true,
	}); err != nil {
		return nil, fmt.Errorf("failed to upsert node: %w", err)
	}

	if r.metrics != nil {
		r.metrics.NodesUpserted.WithLabelValues(string(in.Label)).Inc()
	}

	result := &UpsertResult{}
	var err error

	if len(in.Follows) > 0 {
		result.Follows, err = r.FollowMany(ctx, in.ID, in.Follows)
		if err != nil {
			return nil, err
		}
	}

	if len(in.Subscribed) > 0 {
		result.Subscribed, err = r.SubscribeMany(ctx, in.ID, in.Subscribed)
		if err != nil {
			return nil, err
		}
	}

	r.logger.Info("Node upserted",
		zap.String("label", string(in.Label)),
		zap.Int64("id", in.ID),
		zap.Int64("follows", result.Follows),
		zap.Int64("subscribed", result.Subscribed),
	)
	return result, nil
}

// CreateUser upserts a user with all of its fields
func (r *Repository) CreateUser(ctx context.Context, u User) error {
	_, err := r.UpsertNode(ctx, NodeInput{
		Label: LabelUser,
		ID:    u.ID,
		Props: map[string]any{
			"name":        u.Name,
			"screen_name": u.ScreenName,
			"sex":         u.Sex,
			"city":        u.City,
		},
	})
	return err
}

// CreateGroup upserts a group with all of its fields
func (r *Repository) CreateGroup(ctx context.Context, g Group) error {
	_, err := r.UpsertNode(ctx, NodeInput{
		Label: LabelGroup,
		ID:    g.ID,
		Props: map[string]any{
			"name":        g.Name,
			"screen_name": g.ScreenName,
		},
	})
	return err
}

// Follow merges a FOLLOWS edge between two existing users
func (r *Repository) Follow(ctx context.Context, from, to int64) error {
	_, err := r.FollowMany(ctx, from, []int64{to})
	return err
}

// Subscribe merges a SUBSCRIBED edge from an existing user to an existing group
func (r *Repository) Subscribe(ctx context.Context, user, group int64) error {
	_, err := r.SubscribeMany(ctx, user, []int64{group})
	return err
}

// FollowMany merges FOLLOWS edges from one user to each target user and
// returns how many targets existed
func (r *Repository) FollowMany(ctx context.Context, from int64, to []int64) (int64, error) {
	return r.link(ctx, LabelUser, RelFollows, LabelUser, from, to)
}

// SubscribeMany merges SUBSCRIBED edges from one user to each target group
// and returns how many targets existed
func (r *Repository) SubscribeMany(ctx context.Context, user int64, groups []int64) (int64, error) {
	return r.link(ctx, LabelUser, RelSubscribed, LabelGroup, user, groups)
}

// link matches both endpoints before merging, so ids that match no node are
// skipped instead of producing dangling edges
func (r *Repository) link(ctx context.Context, fromLabel Label, rel RelType, toLabel Label, from int64, to []int64) (int64, error) {
	if len(to) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		MATCH (a:%s {id: $from})
		UNWIND $to AS target_id
		MATCH (b:%s {id: target_id})
		MERGE (a)-[:%s]->(b)
		RETURN count(b) AS linked
	`, fromLabel, toLabel, rel)

	rows, err := r.exec.Execute(ctx, Statement{
		Cypher: query,
		Params: map[string]any{"from": from, "to": to},
		Write:  true,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create %s relationships: %w", rel, err)
	}

	var linked int64
	if len(rows) > 0 {
		linked = getInt64FromRecord(rows[0], "linked")
	}

	if r.metrics != nil {
		r.metrics.EdgesCreated.WithLabelValues(string(rel)).Add(float64(linked))
	}

	if linked < int64(len(to)) {
		r.logger.Debug("Some relationship endpoints were missing",
			zap.String("type", string(rel)),
			zap.Int64("from", from),
			zap.Int("requested", len(to)),
			zap.Int64("linked", linked),
		)
	}
	return linked, nil
}

// DeleteNode removes every relationship touching the node, in both
// directions, and then the node. Deleting a node that does not exist succeeds.
func (r *Repository) DeleteNode(ctx context.Context, label Label, id int64) error {
	if _, err := ParseLabel(string(label)); err != nil {
		return err
	}

	params := map[string]any{"id": id}

	relQuery := fmt.Sprintf(`
		MATCH (n:%s {id: $id})-[rel]-()
		DELETE rel
	`, label)
	if _, err := r.exec.Execute(ctx, Statement{Cypher: relQuery, Params: params, Write: true}); err != nil {
		return fmt.Errorf("failed to delete relationships: %w", err)
	}

	nodeQuery := fmt.Sprintf(`
		MATCH (n:%s {id: $id})
		DELETE n
	`, label)
	if _, err := r.exec.Execute(ctx, Statement{Cypher: nodeQuery, Params: params, Write: true}); err != nil {
		return fmt.Errorf("failed to delete node: %w", err)
	}

	if r.metrics != nil {
		r.metrics.NodesDeleted.WithLabelValues(string(label)).Inc()
	}

	r.logger.Info("Node deleted",
		zap.String("label", string(label)),
		zap.Int64("id", id),
	)
	return nil
}
