package filter

// KeyEscape is the key that clears a search query
const KeyEscape = "Escape"

// Query is the free-text search box state
type Query struct {
	text string
}

// Text returns the current query
func (q *Query) Text() string {
	return q.text
}

// Set replaces the query
func (q *Query) Set(text string) {
	q.text = text
}

// Clear empties the query
func (q *Query) Clear() {
	q.text = ""
}

// HandleKey reacts to a key press and reports whether it was consumed
func (q *Query) HandleKey(key string) bool {
	if key == KeyEscape {
		q.Clear()
		return true
	}
	return false
}
