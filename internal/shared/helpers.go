// Package shared provides small helpers used across multiple packages
// in the gapsync codebase.
package shared

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// NormalizeEpoch maps the epoch spellings produced by rpm queries to a
// canonical decimal string. "(none)", "None" and the empty string all
// mean epoch zero.
func NormalizeEpoch(value string) string {
	trimmed := strings.TrimSpace(value)
	switch trimmed {
	case "", "(none)", "None":
		return "0"
	}
	return trimmed
}

// FormatEVR renders an epoch/version/release triple the way dnf prints
// it: the epoch prefix is omitted when zero.
func FormatEVR(epoch string, version string, release string) string {
	normalized := NormalizeEpoch(epoch)
	if normalized == "0" {
		return fmt.Sprintf("%s-%s", version, release)
	}
	return fmt.Sprintf("%s:%s-%s", normalized, version, release)
}

// HashFile returns the hex SHA-256 digest of a file's contents.
func HashFile(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer file.Close()
	hasher := sha256.New()
	size, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}
