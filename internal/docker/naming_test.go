package docker

import (
	"regexp"
	"testing"
)

func TestHashContent(t *testing.T) {
	if got := HashContent(""); got != "" {
		t.Fatalf("empty content should hash to empty string, got %q", got)
	}

	h1 := HashContent("FROM gcc:13\n")
	h2 := HashContent("FROM gcc:13\n")
	h3 := HashContent("FROM gcc:14\n")

	if h1 != h2 {
		t.Fatal("identical content must hash identically")
	}
	if h1 == h3 {
		t.Fatal("different content must hash differently")
	}
	if !regexp.MustCompile(`^[0-9a-f]{12}$`).MatchString(h1) {
		t.Fatalf("hash %q is not 12 lowercase hex chars", h1)
	}
}

func TestImageName(t *testing.T) {
	if got := ImageName(RoleMain, "cpp"); got != "cpenv-cpp" {
		t.Errorf("main image = %q", got)
	}
	if got := ImageName(RoleOJ, "cpp"); got != "cpenv-oj-cpp" {
		t.Errorf("oj image = %q", got)
	}
}

func TestContainerName(t *testing.T) {
	if got := ContainerName(RoleMain, "cpp", "abc123def456"); got != "cpenv-cpp-abc123def456" {
		t.Errorf("main container = %q", got)
	}
	if got := ContainerName(RoleOJ, "cpp", "abc123def456"); got != "cpenv-oj-cpp-abc123def456" {
		t.Errorf("oj container = %q", got)
	}
	if got := ContainerName(RoleMain, "cpp", ""); got != "cpenv-cpp-default" {
		t.Errorf("empty hash fallback = %q", got)
	}
}
