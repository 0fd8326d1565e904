package workflow

// DefaultStallWindow is how many consecutive identical attempts count as a
// stall.
const DefaultStallWindow = 3

// detectStall reports whether the last window attempts carry the same code,
// or alternate through a repeating pattern of length 2. Attempts whose coder
// failed (empty code) break the run of signatures.
func detectStall(attempts []AttemptRecord, window int) bool {
	if window < 2 || len(attempts) < window {
		return false
	}
	sigs := make([]string, 0, window)
	for _, a := range attempts[len(attempts)-window:] {
		if a.Code.Empty() {
			return false
		}
		sigs = append(sigs, a.Code.Hash())
	}

	for patternLen := 1; patternLen <= 2; patternLen++ {
		if patternLen >= window {
			break
		}
		match := true
		for i := patternLen; i < window; i++ {
			if sigs[i] != sigs[i-patternLen] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
