package fs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"seedcore/internal/blob/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestPutGetRoundTripWithMetadata(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Put(ctx, "snapshots/run1/user.json", []byte(`[]`), "application/json"); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, data, err := s.Get(ctx, "snapshots/run1/user.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("data: %s", data)
	}
	if info.ContentType != "application/json" {
		t.Fatalf("content type from sidecar: %q", info.ContentType)
	}
}

func TestPutOverwritesExistingKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _ = s.Put(ctx, "k.json", []byte("v1"), "")
	if _, err := s.Put(ctx, "k.json", []byte("v2"), ""); err != nil {
		t.Fatalf("overwrite put: %v", err)
	}
	_, data, err := s.Get(ctx, "k.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(data) != "v2" {
		t.Fatalf("overwrite result: %s", data)
	}
}

func TestGetMissingKeyIsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Get(context.Background(), "absent.json")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestKeySanitization(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, key := range []string{"", "  ", "/abs/path", "../escape", "a/../../escape"} {
		if _, err := s.Put(ctx, key, []byte("x"), ""); err == nil {
			t.Fatalf("key %q should be rejected", key)
		}
	}
}

func TestListWalksNestedKeys(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, k := range []string{"runs/1/a.json", "runs/1/b.json", "runs/2/c.json"} {
		if _, err := s.Put(ctx, k, []byte("{}"), ""); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	infos, err := s.List(ctx, "runs/1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "runs/1/a.json" || infos[1].Key != "runs/1/b.json" {
		t.Fatalf("list result: %+v", infos)
	}
}

func TestListSkipsSidecars(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if _, err := s.Put(ctx, "a.json", []byte("{}"), "application/json"); err != nil {
		t.Fatalf("put: %v", err)
	}
	infos, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("sidecar leaked into listing: %+v", infos)
	}
}

func TestDeleteRemovesDataAndSidecar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, _ = s.Put(ctx, "k.json", []byte("v"), "")
	ok, err := s.Delete(ctx, "k.json")
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if _, err := os.Stat(filepath.Join(s.root, "k.json"+metaSuffix)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("sidecar should be removed: %v", err)
	}
	if ok, _ := s.Delete(ctx, "k.json"); ok {
		t.Fatalf("second delete should report missing")
	}
}

func TestDriverName(t *testing.T) {
	if newTestStore(t).Driver() != core.DriverFilesystem {
		t.Fatalf("driver mismatch")
	}
}
