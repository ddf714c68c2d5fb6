package qb

// Raw is a trusted SQL fragment. It is rendered verbatim, never quoted and
// never parameterized. Callers are responsible for the safety of its
// contents.
type Raw string

func (r Raw) String() string { return string(r) }
