package api

import (
	"context"
	"sort"
	"sync"

	"socialgraph/backend/internal/graph"
	apperrors "socialgraph/backend/pkg/errors"
)

type edge struct {
	rel      graph.RelType
	from, to int64
}

// memoryStore is an in-memory Store with the same observable semantics as
// the Neo4j-backed repository
type memoryStore struct {
	mu     sync.Mutex
	nodes  map[graph.Label]map[int64]map[string]any
	edges  map[edge]struct{}
	fail   error
	pinged int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		nodes: map[graph.Label]map[int64]map[string]any{
			graph.LabelUser:  {},
			graph.LabelGroup: {},
		},
		edges: map[edge]struct{}{},
	}
}

func (m *memoryStore) Ping(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pinged++
	return m.fail
}

func (m *memoryStore) GetUser(_ context.Context, id int64) (*graph.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	props, ok := m.nodes[graph.LabelUser][id]
	if !ok {
		return nil, apperrors.NewNodeNotFound("User", id)
	}
	u := &graph.User{ID: id}
	u.Name, _ = props["name"].(string)
	u.ScreenName, _ = props["screen_name"].(string)
	u.Sex, _ = props["sex"].(int64)
	u.City, _ = props["city"].(string)
	return u, nil
}

func (m *memoryStore) incoming(rel graph.RelType) map[int64]int64 {
	counts := map[int64]int64{}
	for e := range m.edges {
		if e.rel == rel {
			counts[e.to]++
		}
	}
	return counts
}

func rank(counts map[int64]int64) []int64 {
	ids := make([]int64, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > graph.TopLimit {
		ids = ids[:graph.TopLimit]
	}
	return ids
}

func (m *memoryStore) TopUsers(context.Context) ([]graph.TopUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	counts := m.incoming(graph.RelFollows)
	out := []graph.TopUser{}
	for _, id := range rank(counts) {
		name, _ := m.nodes[graph.LabelUser][id]["name"].(string)
		out = append(out, graph.TopUser{ID: id, Name: name, FollowersCount: counts[id]})
	}
	return out, nil
}

func (m *memoryStore) TopGroups(context.Context) ([]graph.TopGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	counts := m.incoming(graph.RelSubscribed)
	out := []graph.TopGroup{}
	for _, id := range rank(counts) {
		name, _ := m.nodes[graph.LabelGroup][id]["name"].(string)
		out = append(out, graph.TopGroup{ID: id, Name: name, SubscribersCount: counts[id]})
	}
	return out, nil
}

func (m *memoryStore) CountUsers(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.nodes[graph.LabelUser])), m.fail
}

func (m *memoryStore) CountGroups(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.nodes[graph.LabelGroup])), m.fail
}

func (m *memoryStore) MutualFollowers(context.Context) ([]graph.MutualPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []graph.MutualPair{}
	for e := range m.edges {
		if e.rel != graph.RelFollows {
			continue
		}
		if _, ok := m.edges[edge{graph.RelFollows, e.to, e.from}]; ok {
			out = append(out, graph.MutualPair{UserID: e.from, FriendID: e.to})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *memoryStore) RunNamedFlat(ctx context.Context, name string) ([]map[string]any, error) {
	switch name {
	case graph.QueryUsersCount:
		n, err := m.CountUsers(ctx)
		return []map[string]any{{"count": n}}, err
	case graph.QueryGroupsCount:
		n, err := m.CountGroups(ctx)
		return []map[string]any{{"count": n}}, err
	default:
		return []map[string]any{}, nil
	}
}

func (m *memoryStore) ListNodes(context.Context) ([]graph.NodeSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []graph.NodeSummary{}
	for _, label := range graph.Labels() {
		for id := range m.nodes[label] {
			out = append(out, graph.NodeSummary{ID: id, Label: string(label)})
		}
	}
	return out, m.fail
}

func (m *memoryStore) GetNode(_ context.Context, label graph.Label, id int64) (*graph.NodeDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	props, ok := m.nodes[label][id]
	if !ok {
		return nil, apperrors.NewNodeNotFound(string(label), id)
	}
	detail := &graph.NodeDetail{
		Node:          graph.NodeView{Labels: []string{string(label)}, Properties: withID(props, id)},
		Relationships: []graph.RelationshipView{},
	}
	for e := range m.edges {
		if e.from != id || label != graph.LabelUser {
			continue
		}
		target := graph.LabelUser
		if e.rel == graph.RelSubscribed {
			target = graph.LabelGroup
		}
		detail.Relationships = append(detail.Relationships, graph.RelationshipView{
			Type:       string(e.rel),
			Properties: map[string]any{},
			Target:     graph.NodeView{Labels: []string{string(target)}, Properties: withID(m.nodes[target][e.to], e.to)},
		})
	}
	return detail, nil
}

func withID(props map[string]any, id int64) map[string]any {
	out := map[string]any{"id": id}
	for k, v := range props {
		out[k] = v
	}
	return out
}

func (m *memoryStore) UpsertNode(_ context.Context, in graph.NodeInput) (*graph.UpsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	if _, err := graph.ParseLabel(string(in.Label)); err != nil {
		return nil, err
	}
	if in.Label != graph.LabelUser && (len(in.Follows) > 0 || len(in.Subscribed) > 0) {
		return nil, apperrors.NewInvalidInput("relationships", "follows and subscribed are only valid for User nodes")
	}

	props, ok := m.nodes[in.Label][in.ID]
	if !ok {
		props = map[string]any{}
		m.nodes[in.Label][in.ID] = props
	}
	for k, v := range in.Props {
		props[k] = v
	}

	result := &graph.UpsertResult{}
	for _, to := range in.Follows {
		if _, ok := m.nodes[graph.LabelUser][to]; ok {
			m.edges[edge{graph.RelFollows, in.ID, to}] = struct{}{}
			result.Follows++
		}
	}
	for _, to := range in.Subscribed {
		if _, ok := m.nodes[graph.LabelGroup][to]; ok {
			m.edges[edge{graph.RelSubscribed, in.ID, to}] = struct{}{}
			result.Subscribed++
		}
	}
	return result, nil
}

func (m *memoryStore) DeleteNode(_ context.Context, label graph.Label, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for e := range m.edges {
		fromMatch := label == graph.LabelUser && e.from == id
		toMatch := e.to == id && ((label == graph.LabelUser && e.rel == graph.RelFollows) ||
			(label == graph.LabelGroup && e.rel == graph.RelSubscribed))
		if fromMatch || toMatch {
			delete(m.edges, e)
		}
	}
	delete(m.nodes[label], id)
	return nil
}
