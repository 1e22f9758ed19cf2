package store

import "booklibrary/internal/util"

const idLength = 24

// newID returns a fresh record ID in external string form.
func newID() string {
	return util.NewID()
}

// validID reports whether id has the shape produced by newID.
func validID(id string) bool {
	if len(id) != idLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
