package domain

import (
	"fmt"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizeName canonicalizes a domain name into its unicode display form
// and its ASCII-compatible (punycode) form. Input may be either form, in
// any case; both returned forms are lowercase.
func NormalizeName(name string) (unicode string, ascii string, err error) {
	trimmed := strings.ToLower(strings.TrimSpace(name))
	if trimmed == "" {
		return "", "", fmt.Errorf("domain name is blank")
	}

	p := idna.Lookup
	ascii, err = p.ToASCII(trimmed)
	if err != nil {
		return "", "", fmt.Errorf("invalid domain name %q: %w", name, err)
	}
	unicode, err = p.ToUnicode(ascii)
	if err != nil {
		return "", "", fmt.Errorf("invalid domain name %q: %w", name, err)
	}
	return unicode, ascii, nil
}
