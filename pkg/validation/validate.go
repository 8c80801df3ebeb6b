// Package validation checks ISO 9660 file and directory identifiers
// against the d-characters of ECMA-119 §7.4 (plus the '.' and ';'
// separators in file identifiers).
package validation

import (
	"strings"

	"github.com/sector9660/isofs/pkg/consts"
)

// ValidISO9660FileIdentifier reports whether identifier only uses
// d-characters plus the separators '.' and ';'.
func ValidISO9660FileIdentifier(identifier string) bool {
	return validateIdentifierRune(identifier, ".;")
}

// ValidISO9660DirIdentifier reports whether identifier only uses
// d-characters, or is one of the two special single-byte root/parent
// identifiers (0x00, 0x01).
func ValidISO9660DirIdentifier(identifier string) bool {
	if len(identifier) == 1 && (identifier[0] == 0x00 || identifier[0] == 0x01) {
		return true
	}
	return validateIdentifierRune(identifier, "")
}

// validateIdentifierRune checks each rune in identifier against the
// d-characters set plus any additionally allowed characters.
func validateIdentifierRune(identifier string, additionalChars string) bool {
	allowed := consts.D_CHARACTERS + additionalChars
	for _, r := range identifier {
		if !strings.ContainsRune(allowed, r) {
			return false
		}
	}
	return true
}
