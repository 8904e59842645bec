package platform

import "strings"

// CleanISBN strips hyphens and spaces from an ISBN.
func CleanISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	return strings.ReplaceAll(isbn, " ", "")
}

// IsISBN reports whether the query looks like an ISBN-10 or ISBN-13.
// ISBN queries skip title matching and go straight to identifier lookup
// on platforms that support it.
func IsISBN(query string) bool {
	clean := CleanISBN(query)
	if len(clean) != 10 && len(clean) != 13 {
		return false
	}
	for _, r := range clean {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
