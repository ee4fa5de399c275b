package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func newLocal(t *testing.T) *LocalProvider {
	t.Helper()
	p, err := NewLocalProvider("test", ProviderConfig{Type: TypeLocal, BasePath: t.TempDir()})
	if err != nil {
		t.Fatalf("NewLocalProvider: %v", err)
	}
	return p
}

func TestLocalUploadExistsDelete(t *testing.T) {
	p := newLocal(t)
	ctx := context.Background()

	if _, err := p.Upload(ctx, "a/b/out.png", []byte("data"), "image/png"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	ok, err := p.Exists(ctx, "a/b/out.png")
	if err != nil || !ok {
		t.Fatalf("Exists = %v, %v; want true, nil", ok, err)
	}
	if err := p.Delete(ctx, "a/b/out.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err = p.Exists(ctx, "a/b/out.png")
	if err != nil || ok {
		t.Fatalf("Exists after delete = %v, %v; want false, nil", ok, err)
	}
	// deleting an absent key is not an error
	if err := p.Delete(ctx, "a/b/out.png"); err != nil {
		t.Fatalf("Delete absent key: %v", err)
	}
}

func TestLocalUploadOverwrites(t *testing.T) {
	p := newLocal(t)
	ctx := context.Background()

	if _, err := p.Upload(ctx, "k.txt", []byte("one"), "text/plain"); err != nil {
		t.Fatalf("first Upload: %v", err)
	}
	if _, err := p.Upload(ctx, "k.txt", []byte("two"), "text/plain"); err != nil {
		t.Fatalf("second Upload: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(p.basePath, "k.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "two" {
		t.Fatalf("content = %q, want overwrite to %q", data, "two")
	}
}

func TestLocalRejectsTraversal(t *testing.T) {
	p := newLocal(t)
	if _, err := p.Upload(context.Background(), "../escape.txt", []byte("x"), ""); err == nil {
		t.Fatal("traversal key should be rejected")
	}
	if _, err := p.Upload(context.Background(), "", []byte("x"), ""); err == nil {
		t.Fatal("empty key should be rejected")
	}
}

func TestLocalRequiresBasePath(t *testing.T) {
	if _, err := NewLocalProvider("test", ProviderConfig{Type: TypeLocal}); err == nil {
		t.Fatal("missing base_path should fail construction")
	}
}
