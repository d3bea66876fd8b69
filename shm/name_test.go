package shm

import (
	"strings"
	"testing"

	"github.com/adred-codev/shmsync/status"
)

func TestValidateNameAccepts(t *testing.T) {
	if s := ValidateName("/foo_bar"); status.Of(s) != status.OK {
		t.Fatalf("expected valid name to pass, got %v", s)
	}
}

func TestValidateNameRejectsMissingSlash(t *testing.T) {
	if s := ValidateName("foo"); status.Of(s) != status.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", s)
	}
}

func TestValidateNameRejectsEmpty(t *testing.T) {
	if s := ValidateName("/"); status.Of(s) != status.InvalidArgument {
		t.Fatalf("expected InvalidArgument for bare slash, got %v", s)
	}
	if s := ValidateName(""); status.Of(s) != status.InvalidArgument {
		t.Fatalf("expected InvalidArgument for empty name, got %v", s)
	}
}

func TestValidateNameRejectsExtraSlash(t *testing.T) {
	if s := ValidateName("/foo/bar"); status.Of(s) != status.InvalidArgument {
		t.Fatalf("expected InvalidArgument for embedded slash, got %v", s)
	}
}

func TestValidateNameRejectsTooLong(t *testing.T) {
	name := "/" + strings.Repeat("a", MaxNameLength)
	if s := ValidateName(name); status.Of(s) != status.InvalidArgument {
		t.Fatalf("expected InvalidArgument for oversized name, got %v", s)
	}
}
