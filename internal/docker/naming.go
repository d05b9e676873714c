package docker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const namePrefix = "cpenv"

// Role distinguishes the main language environment from the online-judge
// tools environment. Both run the identical naming and rebuild logic.
type Role string

const (
	RoleMain Role = "main"
	RoleOJ   Role = "oj"
)

// HashContent returns the truncated SHA-256 hash (12 hex chars) of the given
// text, or the empty string for empty content.
func HashContent(text string) string {
	if text == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:12]
}

// ImageName derives the image name for a role and language.
func ImageName(role Role, language string) string {
	if role == RoleOJ {
		return fmt.Sprintf("%s-oj-%s", namePrefix, language)
	}
	return fmt.Sprintf("%s-%s", namePrefix, language)
}

// ContainerName derives the container name from the language and the
// Dockerfile content hash, so a Dockerfile change naturally produces a new
// container name without manual invalidation.
func ContainerName(role Role, language, hash string) string {
	if hash == "" {
		hash = "default"
	}
	if role == RoleOJ {
		return fmt.Sprintf("%s-oj-%s-%s", namePrefix, language, hash)
	}
	return fmt.Sprintf("%s-%s-%s", namePrefix, language, hash)
}
