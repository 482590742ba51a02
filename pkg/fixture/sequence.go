package fixture

// Sequence cycles through an ordered, non-empty list of override sets. Next returns
// the set at cursor mod length, then increments. Each terminal factory operation
// walks its own fork of the sequence, so independent invocations never share a
// cursor while all instances of one Make/Create call do.
type Sequence struct {
	steps  []Values
	cursor int
}

// NewSequence builds a sequence over the given override sets.
func NewSequence(steps ...Values) *Sequence {
	return &Sequence{steps: steps}
}

// Len returns the number of override sets.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.steps)
}

// Next returns the current override set and advances the cursor, wrapping around.
func (s *Sequence) Next() Values {
	step := s.steps[s.cursor%len(s.steps)]
	s.cursor++
	return step
}

// fork returns an independent sequence over the same steps with a reset cursor.
func (s *Sequence) fork() *Sequence {
	if s == nil {
		return nil
	}
	return &Sequence{steps: s.steps}
}
