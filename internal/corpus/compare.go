package corpus

import "cmp"

// CompareSymbolNames orders names case-insensitively. Names equal up to case and
// of equal length are ordered by the first differing byte, lowercase first; when
// one name is a case-insensitive prefix of the other, the shorter sorts first.
// Only ASCII letters are folded, so the order is locale independent.
func CompareSymbolNames(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if ca, cb := foldASCII(a[i]), foldASCII(b[i]); ca != cb {
			return cmp.Compare(ca, cb)
		}
	}
	if len(a) != len(b) {
		return cmp.Compare(len(a), len(b))
	}
	for i := 0; i < len(a); i++ {
		if a[i] != b[i] {
			if isLowerASCII(a[i]) {
				return -1
			}
			return 1
		}
	}
	return 0
}

func foldASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func isLowerASCII(c byte) bool {
	return 'a' <= c && c <= 'z'
}
