package graph

import "sort"

// Named read queries
const (
	QueryUsersCount      = "users_count"
	QueryGroupsCount     = "groups_count"
	QueryTopUsers        = "top_users"
	QueryTopGroups       = "top_groups"
	QueryMutualFollowers = "mutual_followers"
)

// TopLimit caps the top-users and top-groups rankings
const TopLimit = 5

var catalog = map[string]string{
	QueryUsersCount:  `MATCH (u:User) RETURN count(u) AS count`,
	QueryGroupsCount: `MATCH (g:Group) RETURN count(g) AS count`,
	QueryTopUsers: `
		MATCH (u:User)<-[:FOLLOWS]-()
		RETURN u.id AS id, u.name AS name, count(*) AS followers_count
		ORDER BY followers_count DESC, id ASC
		LIMIT 5
	`,
	QueryTopGroups: `
		MATCH (g:Group)<-[:SUBSCRIBED]-()
		RETURN g.id AS id, g.name AS name, count(*) AS subscribers_count
		ORDER BY subscribers_count DESC, id ASC
		LIMIT 5
	`,
	QueryMutualFollowers: `
		MATCH (u1:User)-[:FOLLOWS]->(u2:User)-[:FOLLOWS]->(u1)
		RETURN u1.id AS user_id, u2.id AS friend_id
		ORDER BY user_id, friend_id
	`,
}

// Resolve returns the Cypher text for a named query
func Resolve(name string) (string, bool) {
	q, ok := catalog[name]
	return q, ok
}

// QueryNames returns the catalog keys in sorted order
func QueryNames() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
