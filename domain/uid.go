package domain

import (
	"fmt"
	"strings"

	apperrors "github.com/injectivepass/nfc_service/errors"
)

// Accepted NFC UID lengths in bytes (single, double and 8-byte tags).
var uidByteLengths = map[int]bool{4: true, 7: true, 8: true}

// NormalizeUID validates a scanned UID and returns its canonical form:
// lowercase hex byte pairs joined by colons. Both "04:1A:2B:3C" and
// "041a2b3c" normalize to "04:1a:2b:3c".
func NormalizeUID(raw string) (string, error) {
	const op = "normalize uid"

	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", apperrors.New(apperrors.CodeInvalidFormat, op, "uid is required")
	}

	var groups []string
	if strings.Contains(s, ":") {
		groups = strings.Split(s, ":")
	} else {
		if len(s)%2 != 0 {
			return "", apperrors.New(apperrors.CodeInvalidFormat, op, "uid must be whole bytes")
		}
		for i := 0; i < len(s); i += 2 {
			groups = append(groups, s[i:i+2])
		}
	}

	if !uidByteLengths[len(groups)] {
		return "", apperrors.New(apperrors.CodeInvalidFormat, op,
			fmt.Sprintf("uid must be 4, 7 or 8 bytes, got %d", len(groups)))
	}
	for _, g := range groups {
		if len(g) != 2 || !isHexByte(g) {
			return "", apperrors.New(apperrors.CodeInvalidFormat, op, "uid must be hex byte pairs")
		}
	}
	return strings.Join(groups, ":"), nil
}

func isHexByte(g string) bool {
	for i := 0; i < len(g); i++ {
		ch := g[i]
		if !(ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'f') {
			return false
		}
	}
	return true
}
