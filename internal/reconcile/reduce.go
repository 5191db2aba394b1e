package reconcile

import "github.com/MrSnakeDoc/marks/internal/domain"

// Reduce applies ev to list and returns the resulting list together with
// whether anything changed. list is never modified.
//
// Inserts land at the head and are ignored when the id is already held.
// Updates replace in place and deletes remove by id; both are no-ops for
// ids that are not held. Nothing here reorders existing entries.
func Reduce(list []domain.Bookmark, ev Event) ([]domain.Bookmark, bool) {
	switch e := ev.(type) {
	case LocalAdd:
		return prepend(list, e.Bookmark)
	case RemoteInsert:
		return prepend(list, e.Bookmark)
	case RemoteUpdate:
		return replace(list, e.Bookmark)
	case LocalDelete:
		return remove(list, e.ID)
	case RemoteDelete:
		return remove(list, e.ID)
	case RollbackTo:
		return clone(e.Snapshot), true
	default:
		return list, false
	}
}

func prepend(list []domain.Bookmark, b domain.Bookmark) ([]domain.Bookmark, bool) {
	if domain.IndexOf(list, b.ID) >= 0 {
		return list, false
	}
	out := make([]domain.Bookmark, 0, len(list)+1)
	out = append(out, b)
	out = append(out, list...)
	return out, true
}

// replace keeps the held entry when the incoming one carries an older
// UpdatedAt. Zero timestamps always win.
func replace(list []domain.Bookmark, b domain.Bookmark) ([]domain.Bookmark, bool) {
	i := domain.IndexOf(list, b.ID)
	if i < 0 {
		return list, false
	}
	held := list[i]
	if !b.UpdatedAt.IsZero() && !held.UpdatedAt.IsZero() && b.UpdatedAt.Before(held.UpdatedAt) {
		return list, false
	}
	out := clone(list)
	out[i] = b
	return out, true
}

func remove(list []domain.Bookmark, id string) ([]domain.Bookmark, bool) {
	i := domain.IndexOf(list, id)
	if i < 0 {
		return list, false
	}
	out := make([]domain.Bookmark, 0, len(list)-1)
	out = append(out, list[:i]...)
	out = append(out, list[i+1:]...)
	return out, true
}

func clone(list []domain.Bookmark) []domain.Bookmark {
	if list == nil {
		return []domain.Bookmark{}
	}
	out := make([]domain.Bookmark, len(list))
	copy(out, list)
	return out
}
