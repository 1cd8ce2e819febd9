package domain

import (
	"regexp"
	"strings"

	apperrors "github.com/injectivepass/nfc_service/errors"
)

const DomainSuffix = ".inj"

var domainLabel = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,28}[a-z0-9])?$`)

// NormalizeDomain lowercases name, appends DomainSuffix when missing and
// checks the label. "Alice" and "alice.inj" both give "alice.inj".
func NormalizeDomain(name string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(name))
	label := strings.TrimSuffix(s, DomainSuffix)
	if !domainLabel.MatchString(label) {
		return "", apperrors.New(apperrors.CodeInvalidFormat, "normalize domain",
			"domain must be 1-30 characters of a-z, 0-9 or '-', not starting or ending with '-'")
	}
	return label + DomainSuffix, nil
}

const maxCatNameLen = 32

// ValidateCatName trims name and checks its length.
func ValidateCatName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" || len([]rune(s)) > maxCatNameLen {
		return "", apperrors.New(apperrors.CodeInvalidFormat, "validate cat name",
			"cat name must be 1-32 characters")
	}
	return s, nil
}
