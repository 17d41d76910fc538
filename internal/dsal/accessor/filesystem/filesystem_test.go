package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rakunlabs/at/internal/dsal/accessor"
	"github.com/rakunlabs/at/internal/dsalerr"
)

func newTestAccessor(t *testing.T) (*Accessor, string) {
	t.Helper()
	root := t.TempDir()
	a, err := New("local", Config{DataSourceRoot: root, StrictRoot: true})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, root
}

func TestListResources_Pagination(t *testing.T) {
	a, root := newTestAccessor(t)
	for i := 0; i < 250; i++ {
		name := fmt.Sprintf("f%03d.txt", i)
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	res, err := a.ListResources(context.Background(), accessor.ListOptions{PageSize: 100})
	if err != nil {
		t.Fatalf("list 1: %v", err)
	}
	if len(res.Resources) != 100 || res.Pagination.NextPageToken != "100" {
		t.Fatalf("page 1: got %d resources, token %q", len(res.Resources), res.Pagination.NextPageToken)
	}

	res2, err := a.ListResources(context.Background(), accessor.ListOptions{PageSize: 100, PageToken: res.Pagination.NextPageToken})
	if err != nil {
		t.Fatalf("list 2: %v", err)
	}
	if len(res2.Resources) != 100 || res2.Pagination.NextPageToken != "200" {
		t.Fatalf("page 2: got %d resources, token %q", len(res2.Resources), res2.Pagination.NextPageToken)
	}

	res3, err := a.ListResources(context.Background(), accessor.ListOptions{PageSize: 100, PageToken: res2.Pagination.NextPageToken})
	if err != nil {
		t.Fatalf("list 3: %v", err)
	}
	if len(res3.Resources) != 50 || res3.Pagination.HasMore {
		t.Fatalf("page 3: got %d resources, hasMore %v", len(res3.Resources), res3.Pagination.HasMore)
	}
}

func TestLoadResource_PathEscapeRefused(t *testing.T) {
	a, _ := newTestAccessor(t)

	_, err := a.LoadResource(context.Background(), "./../etc/passwd", accessor.LoadOptions{})
	if err == nil {
		t.Fatal("expected error for path escape")
	}
	kind, ok := dsalerr.Of(err)
	if !ok || (kind != dsalerr.InvalidUri && kind != dsalerr.NotFound) {
		t.Fatalf("expected InvalidUri or NotFound, got %v (%v)", kind, err)
	}
}

func TestSearchResources_SnippetNoEllipsis(t *testing.T) {
	a, root := newTestAccessor(t)
	content := "alpha beta TODO gamma delta"
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := a.SearchResources(context.Background(), "TODO", accessor.SearchOptions{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(res.Matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(res.Matches))
	}
	if len(res.Matches[0].Snippets) != 1 || res.Matches[0].Snippets[0] != content {
		t.Fatalf("expected snippet %q with no ellipses, got %v", content, res.Matches[0].Snippets)
	}
}

func TestIsResourceWithinDataSource(t *testing.T) {
	a, _ := newTestAccessor(t)
	if !a.IsResourceWithinDataSource("sub/file.txt") {
		t.Fatal("expected in-root path to be accepted")
	}
	if a.IsResourceWithinDataSource("../outside.txt") {
		t.Fatal("expected escaping path to be refused")
	}
}
