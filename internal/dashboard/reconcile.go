package dashboard

// Keyed is a cached row addressable by id.
type Keyed interface {
	Key() int64
}

// Op is the kind of a successful mutation.
type Op int

const (
	OpCreated Op = iota + 1
	OpUpdated
	OpDeleted
)

// Mutation is the result of a successful write, ready to be folded into a
// cached list.
type Mutation[T Keyed] struct {
	Op   Op
	Item T
	ID   int64
}

// Created prepends item.
func Created[T Keyed](item T) Mutation[T] {
	return Mutation[T]{Op: OpCreated, Item: item, ID: item.Key()}
}

// Updated replaces the row with item's id in place.
func Updated[T Keyed](item T) Mutation[T] {
	return Mutation[T]{Op: OpUpdated, Item: item, ID: item.Key()}
}

// Deleted removes the row with id.
func Deleted[T Keyed](id int64) Mutation[T] {
	return Mutation[T]{Op: OpDeleted, ID: id}
}

// Apply folds m into list and returns a new slice. list is never modified.
func Apply[T Keyed](list []T, m Mutation[T]) []T {
	switch m.Op {
	case OpCreated:
		out := make([]T, 0, len(list)+1)
		out = append(out, m.Item)
		return append(out, list...)
	case OpUpdated:
		out := make([]T, len(list))
		copy(out, list)
		for i := range out {
			if out[i].Key() == m.ID {
				out[i] = m.Item
			}
		}
		return out
	case OpDeleted:
		out := make([]T, 0, len(list))
		for _, item := range list {
			if item.Key() != m.ID {
				out = append(out, item)
			}
		}
		return out
	}
	out := make([]T, len(list))
	copy(out, list)
	return out
}
