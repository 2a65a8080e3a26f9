package state

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStoreInitIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	st, err := store.Init(ctx, "s1")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if st.Status != StatusInitial {
		t.Fatalf("Init().Status = %s, want initial", st.Status)
	}

	if _, err := store.Update(ctx, "s1", Patch{Name: String("Dewi")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	again, err := store.Init(ctx, "s1")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if again.Name != "Dewi" {
		t.Fatalf("re-init overwrote state: name=%q", again.Name)
	}
}

func TestMemoryStoreGetMissing(t *testing.T) {
	t.Parallel()

	_, err := NewMemoryStore().Get(context.Background(), "nope")
	if !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Get() error = %v, want ErrStateNotFound", err)
	}
}

func TestMemoryStoreRejectsBlankSession(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Init(context.Background(), "  "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Init() error = %v, want ErrInvalidSession", err)
	}
	if _, err := store.Update(context.Background(), "", Patch{}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Update() error = %v, want ErrInvalidSession", err)
	}
}

func TestMemoryStoreUpdateCreatesDefault(t *testing.T) {
	t.Parallel()

	st, err := NewMemoryStore().Update(context.Background(), "s2", Patch{Phone: String("0811")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if st.Status != StatusInitial || st.Phone != "0811" {
		t.Fatalf("Update() = %+v", st)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	st, err := store.Update(ctx, "s1", Patch{MissingFields: []string{"date"}, ClientExists: Bool(true)})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	st.MissingFields[0] = "mutated"
	*st.ClientExists = false

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.MissingFields[0] != "date" || !*got.ClientExists {
		t.Fatalf("store state leaked to caller: %+v", got)
	}
}

func TestMemoryStoreSessionIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	if _, err := store.Init(ctx, "a"); err != nil {
		t.Fatalf("Init(a) error = %v", err)
	}
	if _, err := store.Init(ctx, "b"); err != nil {
		t.Fatalf("Init(b) error = %v", err)
	}

	if _, err := store.Update(ctx, "a", Patch{Name: String("Dewi"), Status: StatusPtr(StatusConfirmed)}); err != nil {
		t.Fatalf("Update(a) error = %v", err)
	}

	b, err := store.Get(ctx, "b")
	if err != nil {
		t.Fatalf("Get(b) error = %v", err)
	}
	if b.Name != "" || b.Status != StatusInitial {
		t.Fatalf("session b affected by a: %+v", b)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.Init(ctx, id); err != nil {
			t.Fatalf("Init(%s) error = %v", id, err)
		}
	}

	if err := store.Clear(ctx, "a"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.Get(ctx, "a"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Get(a) after Clear error = %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", store.Len())
	}

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", store.Len())
	}
}

func TestMemoryStoreConcurrentSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("s%d", i)
			name := fmt.Sprintf("client-%d", i)
			if _, err := store.Update(ctx, id, Patch{Name: String(name)}); err != nil {
				t.Errorf("Update(%s) error = %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		st, err := store.Get(ctx, fmt.Sprintf("s%d", i))
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if want := fmt.Sprintf("client-%d", i); st.Name != want {
			t.Fatalf("Name = %q, want %q", st.Name, want)
		}
	}
}
