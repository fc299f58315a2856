package core

import (
	"strconv"
	"strings"

	"gapsync/internal/shared"
	"gapsync/internal/types"
)

// Compare orders two packages by (epoch, version, release) using RPM
// rpmvercmp semantics and returns -1, 0, or 1.
//
// Epochs compare as integers; an epoch that does not parse as a decimal
// falls back to raw lexical comparison so the ordering stays total and
// deterministic on malformed input. Version and release strings compare
// segment-wise: numeric runs numerically, alphabetic runs lexically,
// numeric beats alphabetic, a tilde segment sorts before everything and
// a caret segment sorts between tilde and end-of-string.
func Compare(a types.EVR, b types.EVR) int {
	if rc := compareEpochs(a.Epoch, b.Epoch); rc != 0 {
		return rc
	}
	if rc := rpmvercmp(a.Version, b.Version); rc != 0 {
		return rc
	}
	return rpmvercmp(a.Release, b.Release)
}

// IsNewer reports whether available is a strictly newer build than
// installed.
func IsNewer(installed types.EVR, available types.EVR) bool {
	return Compare(installed, available) < 0
}

func compareEpochs(a string, b string) int {
	left := shared.NormalizeEpoch(a)
	right := shared.NormalizeEpoch(b)
	leftNum, leftErr := strconv.Atoi(left)
	rightNum, rightErr := strconv.Atoi(right)
	if leftErr != nil || rightErr != nil {
		return strings.Compare(left, right)
	}
	switch {
	case leftNum < rightNum:
		return -1
	case leftNum > rightNum:
		return 1
	}
	return 0
}

func isVersionByte(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// rpmvercmp is the segment comparison from rpm's rpmvercmp.c.
func rpmvercmp(a string, b string) int {
	if a == b {
		return 0
	}
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		for i < len(a) && !isVersionByte(a[i]) && a[i] != '~' && a[i] != '^' {
			i++
		}
		for j < len(b) && !isVersionByte(b[j]) && b[j] != '~' && b[j] != '^' {
			j++
		}

		// Tilde sorts before everything, including the end of the string.
		aTilde := i < len(a) && a[i] == '~'
		bTilde := j < len(b) && b[j] == '~'
		if aTilde || bTilde {
			if !aTilde {
				return 1
			}
			if !bTilde {
				return -1
			}
			i++
			j++
			continue
		}

		// Caret works like tilde, except that a string that ends at the
		// caret position (the base version) sorts lower.
		aCaret := i < len(a) && a[i] == '^'
		bCaret := j < len(b) && b[j] == '^'
		if aCaret || bCaret {
			if i == len(a) {
				return -1
			}
			if j == len(b) {
				return 1
			}
			if !aCaret {
				return 1
			}
			if !bCaret {
				return -1
			}
			i++
			j++
			continue
		}

		if i == len(a) || j == len(b) {
			break
		}

		segStartA, segStartB := i, j
		numeric := isDigit(a[i])
		if numeric {
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
		} else {
			for i < len(a) && isAlpha(a[i]) {
				i++
			}
			for j < len(b) && isAlpha(b[j]) {
				j++
			}
		}

		segA := a[segStartA:i]
		segB := b[segStartB:j]
		if segB == "" {
			// Mismatched segment types: the numeric segment wins.
			if numeric {
				return 1
			}
			return -1
		}

		if numeric {
			segA = strings.TrimLeft(segA, "0")
			segB = strings.TrimLeft(segB, "0")
			if len(segA) != len(segB) {
				if len(segA) > len(segB) {
					return 1
				}
				return -1
			}
		}
		if rc := strings.Compare(segA, segB); rc != 0 {
			if rc > 0 {
				return 1
			}
			return -1
		}
	}

	// Equal segments all the way; whichever string has leftovers wins.
	if i == len(a) && j == len(b) {
		return 0
	}
	if i == len(a) {
		return -1
	}
	return 1
}

func isAlpha(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
