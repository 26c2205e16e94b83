package registry

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Validation constants.
const (
	// MaxNameLength is the maximum length of a home, room or device name in runes.
	MaxNameLength = 128

	// MaxDescriptionLength is the maximum length of a device description in bytes.
	MaxDescriptionLength = 1024

	maxPort = 65535
)

// ValidateName checks a home, room or device name and returns its
// canonical form (Unicode NFC). The canonical form is the key the name is
// stored under, so "Café" and "Café" name the same room.
func ValidateName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidName)
	}

	canonical := norm.NFC.String(name)
	if strings.TrimSpace(canonical) == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if utf8.RuneCountInString(canonical) > MaxNameLength {
		return "", fmt.Errorf("%w: %q exceeds %d characters", ErrInvalidName, canonical, MaxNameLength)
	}
	for _, r := range canonical {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %q contains control characters", ErrInvalidName, canonical)
		}
	}

	return canonical, nil
}

// ValidateServer checks that a device endpoint address is host:port shaped.
func ValidateServer(server string) error {
	host, port, err := net.SplitHostPort(server)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidServer, server, err)
	}
	if host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidServer, server)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > maxPort {
		return fmt.Errorf("%w: %q has invalid port", ErrInvalidServer, server)
	}
	return nil
}

// validateDescription limits description size.
func validateDescription(description string) error {
	if len(description) > MaxDescriptionLength {
		return fmt.Errorf("%w: exceeds %d bytes", ErrInvalidDescription, MaxDescriptionLength)
	}
	return nil
}

// lookupKey canonicalises a name for lookups. Invalid names simply never match.
func lookupKey(name string) string {
	return norm.NFC.String(name)
}
