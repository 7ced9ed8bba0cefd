package orm

// isIRI is the same heuristic spec.md's teacher-grounded source uses
// (original_source/engine/verifier/src/orm/utils.rs): a string counts
// as an IRI if it starts with a letter followed by a scheme made of
// alphanumerics/+/./- and a colon, within the first 13 characters.
func isIRI(s string) bool {
	if len(s) == 0 || !isAlpha(s[0]) {
		return false
	}
	limit := len(s)
	if limit > 13 {
		limit = 13
	}
	for i := 1; i < limit; i++ {
		c := s[i]
		switch {
		case c == ':':
			return i >= 1
		case isAlnum(c) || c == '+' || c == '.' || c == '-':
			continue
		default:
			return false
		}
	}
	return false
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isAlnum(c byte) bool {
	return isAlpha(c) || (c >= '0' && c <= '9')
}
