package docchat

// Stats tracks what one stream delivered.
//
// Bytes counts the UTF-8 length of fragment text, not wire bytes: framing
// and keep-alives are excluded.
type Stats struct {
	Fragments int
	Bytes     int
}

// Add records one delivered fragment.
func (s *Stats) Add(f Fragment) {
	s.Fragments++
	s.Bytes += len(f.Text)
}
