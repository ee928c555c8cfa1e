package back

func contains[T comparable](s []T, x T) bool {
	for _, y := range s {
		if y == x {
			return true
		}
	}

	return false
}

func appendUnique[T comparable](s []T, x T) []T {
	if contains(s, x) {
		return s
	}

	return append(s, x)
}

func removeAll[T comparable](s []T, x T) []T {
	r := s[:0]

	for _, y := range s {
		if y != x {
			r = append(r, y)
		}
	}

	return r
}
