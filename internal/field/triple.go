package field

// Triple is a Beaver triple (a, b, c=a*b), each element a share at the
// same x-coordinate (spec.md 3, "Beaver triple"). Consumed one-per-
// multiplication by the dropbox's oblivious-equality FIND op.
type Triple struct {
	A, B, C Share
}

// IsDummy reports whether the triple is a placeholder (e.g. spliced into
// a preproduct chunk beyond what a batch actually holds).
func (t Triple) IsDummy() bool {
	return t.A.IsDummy() || t.B.IsDummy() || t.C.IsDummy()
}
