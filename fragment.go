package docchat

// Fragment is one decoded unit of streamed text. Index is the 0-based
// arrival position within its stream; fragments are never reordered.
type Fragment struct {
	Index int
	Text  string
}
