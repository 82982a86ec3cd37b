package types

// Advertisement is the content object the resolver hands back to callers.
//
// The resolver never looks inside it. Values travel by pointer, and the cache
// stores the same pointer it received from a provider.
type Advertisement struct {
	ID          string
	Name        string
	Description string
}
