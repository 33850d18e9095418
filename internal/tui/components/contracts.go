package components

// Scrollable captures the scrolling operations of a viewport. The returned
// lines are only used by high-performance rendering, which nothing here does.
type Scrollable interface {
	ScrollUp(lines int) []string
	ScrollDown(lines int) []string
	HalfPageUp() []string
	HalfPageDown() []string
}

// ScrollKey applies a navigation key to s and reports whether it was one.
func ScrollKey(s Scrollable, key string) bool {
	switch key {
	case "up", "k":
		s.ScrollUp(1)
	case "down", "j":
		s.ScrollDown(1)
	case "pgup":
		s.HalfPageUp()
	case "pgdown":
		s.HalfPageDown()
	default:
		return false
	}
	return true
}
