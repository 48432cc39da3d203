package graph

// User is a person node
type User struct {
	ID         int64  `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	ScreenName string `json:"screen_name" yaml:"screen_name"`
	Sex        int64  `json:"sex" yaml:"sex"`
	City       string `json:"city" yaml:"city"`
}

// Group is a community node users subscribe to
type Group struct {
	ID         int64  `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	ScreenName string `json:"screen_name" yaml:"screen_name"`
}

// TopUser is one row of the most-followed ranking
type TopUser struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	FollowersCount int64  `json:"followers_count"`
}

// TopGroup is one row of the most-subscribed ranking
type TopGroup struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	SubscribersCount int64  `json:"subscribers_count"`
}

// MutualPair is two users following each other. Each pair appears twice,
// once from either side.
type MutualPair struct {
	UserID   int64 `json:"user_id"`
	FriendID int64 `json:"friend_id"`
}

// NodeSummary identifies a node by id and its first label
type NodeSummary struct {
	ID    any    `json:"id"`
	Label string `json:"label"`
}

// NodeView is a serialized node
type NodeView struct {
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
}

// RelationshipView is an outgoing relationship and the node it points to
type RelationshipView struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Target     NodeView       `json:"target"`
}

// NodeDetail is a node with all of its outgoing relationships
type NodeDetail struct {
	Node          NodeView           `json:"node"`
	Relationships []RelationshipView `json:"relationships"`
}

// NodeInput describes an upsert. Props are written with SET +=, so absent
// keys leave existing properties untouched.
type NodeInput struct {
	Label      Label
	ID         int64
	Props      map[string]any
	Follows    []int64
	Subscribed []int64
}

// UpsertResult reports how many relationships an upsert merged
type UpsertResult struct {
	Follows    int64 `json:"follows"`
	Subscribed int64 `json:"subscribed"`
}
