package contacts

type limitIterator struct {
	Iterator
	remaining int
}

// Limit yields at most n contacts from it. A non-positive n disables the cap.
func Limit(it Iterator, n int) Iterator {
	if n <= 0 {
		return it
	}
	return &limitIterator{Iterator: it, remaining: n}
}

func (l *limitIterator) Next() bool {
	if l.remaining <= 0 {
		return false
	}
	if !l.Iterator.Next() {
		return false
	}
	l.remaining--
	return true
}

// SliceIterator iterates over contacts held in memory.
type SliceIterator struct {
	contacts []Contact
	pos      int
	closed   bool
}

func NewSliceIterator(contacts []Contact) *SliceIterator {
	return &SliceIterator{contacts: contacts, pos: -1}
}

func (s *SliceIterator) Next() bool {
	if s.closed || s.pos+1 >= len(s.contacts) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceIterator) Contact() Contact { return s.contacts[s.pos] }
func (s *SliceIterator) Err() error       { return nil }

func (s *SliceIterator) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (s *SliceIterator) Closed() bool { return s.closed }
