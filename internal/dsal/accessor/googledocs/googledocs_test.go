package googledocs

import (
	"testing"

	"github.com/rakunlabs/at/internal/dsal/uri"
)

func TestResourcePath_RecognizesAllKinds(t *testing.T) {
	a := &Accessor{connectionName: "local"}
	cases := map[string]kind{
		"document/abc": kindDocument,
		"folder/def":   kindFolder,
		"search/q":     kindSearch,
		"drive/x":      kindDrive,
	}
	for path, want := range cases {
		k, _, err := a.resourcePath(path)
		if err != nil {
			t.Fatalf("resourcePath(%q): %v", path, err)
		}
		if k != want {
			t.Fatalf("resourcePath(%q) = %v, want %v", path, k, want)
		}
	}
}

func TestResourcePath_RejectsUnknownKind(t *testing.T) {
	a := &Accessor{connectionName: "local"}
	if _, _, err := a.resourcePath("sheet/abc"); err == nil {
		t.Fatal("expected error for unrecognized kind")
	}
}

func TestHasCapability_MatchesAdvertised(t *testing.T) {
	a := &Accessor{}
	if !a.HasCapability(uri.CoarseBlockEdit) {
		t.Fatal("expected blockEdit to be advertised")
	}
	if a.HasCapability(uri.CoarseMove) {
		t.Fatal("move must not be advertised")
	}
}
