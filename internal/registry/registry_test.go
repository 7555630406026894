package registry

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// mockLoader is a test implementation of the Loader interface
type mockLoader struct {
	name string
	body string
}

func (m *mockLoader) Name() string { return m.name }

func (m *mockLoader) Load(ctx context.Context, src Source) (string, error) {
	return m.body, nil
}

func TestRegister(t *testing.T) {
	t.Run("register new loader", func(t *testing.T) {
		r := New()
		r.Register(&mockLoader{name: "test-loader"})

		got, ok := r.Get("test-loader")
		if !ok {
			t.Fatal("loader not found in registry after Register")
		}
		if got.Name() != "test-loader" {
			t.Errorf("loader name = %q, want %q", got.Name(), "test-loader")
		}
	})

	t.Run("register overwrites existing loader", func(t *testing.T) {
		r := New(&mockLoader{name: "dup", body: "first"})
		r.Register(&mockLoader{name: "dup", body: "second"})

		body, err := r.Load(context.Background(), Source{Type: "dup"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if body != "second" {
			t.Errorf("Load() = %q, want second", body)
		}
	})

	t.Run("registries are independent", func(t *testing.T) {
		a := New(&mockLoader{name: "only-a"})
		b := New()
		if _, ok := a.Get("only-a"); !ok {
			t.Error("only-a missing from a")
		}
		if _, ok := b.Get("only-a"); ok {
			t.Error("only-a leaked into b")
		}
	})
}

func TestGet(t *testing.T) {
	r := New(&mockLoader{name: "get-test"})

	t.Run("get existing loader", func(t *testing.T) {
		if _, ok := r.Get("get-test"); !ok {
			t.Error("Get() returned ok=false for registered loader")
		}
	})

	t.Run("get non-existent loader", func(t *testing.T) {
		l, ok := r.Get("non-existent")
		if ok {
			t.Error("Get() returned ok=true for non-existent loader")
		}
		if l != nil {
			t.Error("Get() returned non-nil loader for non-existent name")
		}
	})

	t.Run("empty name", func(t *testing.T) {
		if _, ok := r.Get(""); ok {
			t.Error("Get(\"\") returned ok=true")
		}
	})
}

func TestNames(t *testing.T) {
	r := New(&mockLoader{name: "http"}, &mockLoader{name: "file"}, &mockLoader{name: "git"})
	got := strings.Join(r.Names(), ",")
	if got != "file,git,http" {
		t.Errorf("Names() = %q, want file,git,http", got)
	}
}

func TestLoad(t *testing.T) {
	r := New(&mockLoader{name: "mock", body: "echo hi"})

	t.Run("known type", func(t *testing.T) {
		body, err := r.Load(context.Background(), Source{Type: "mock"})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if body != "echo hi" {
			t.Errorf("Load() = %q, want %q", body, "echo hi")
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := r.Load(context.Background(), Source{Type: "ftp"})
		if !errors.Is(err, ErrUnknownLoader) {
			t.Errorf("Load() error = %v, want ErrUnknownLoader", err)
		}
		if err != nil && !strings.Contains(err.Error(), `"ftp"`) {
			t.Errorf("error %q does not name the type", err)
		}
	})
}
