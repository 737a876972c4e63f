package cache

// Key identifies one cacheable resource or collection.
type Key string

// Well-known keys.
const (
	PostsList Key = "posts:list"
	AuthUser  Key = "auth:user"
)

const postDetailPrefix = "posts:detail:"

// PostDetail is the key of a single post.
func PostDetail(id string) Key {
	return Key(postDetailPrefix + id)
}
