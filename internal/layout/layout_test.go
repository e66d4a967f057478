package layout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/flowcanvas/internal/api"
	"github.com/leapstack-labs/flowcanvas/internal/canvas"
	"github.com/leapstack-labs/flowcanvas/internal/tableref"
)

type fakeSaver struct {
	mu    sync.Mutex
	calls []api.Layout
	err   error
}

func (f *fakeSaver) PutLayout(_ context.Context, _ int, layout *api.Layout) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, *layout)
	return nil
}

func (f *fakeSaver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeSaver) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func seededStore() *canvas.Store {
	s := canvas.NewStore(nil)
	s.ReplaceGraph([]canvas.Node{
		{ID: "sheet-1", Kind: tableref.KindSource, Position: canvas.Position{X: 0, Y: 0}},
		{ID: "step-1", Kind: tableref.KindTransform, Position: canvas.Position{X: 100, Y: 0}},
	}, nil)
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestCoalescedSaveAfterStructuralChange(t *testing.T) {
	store := seededStore()
	saver := &fakeSaver{}
	svc := NewService(Config{
		ProjectID: 1,
		Store:     store,
		Saver:     saver,
		Interval:  time.Hour, // isolate the coalescing path
		Coalesce:  20 * time.Millisecond,
	})
	svc.Start(context.Background())
	defer svc.Stop()

	pos := canvas.Position{X: 300, Y: 200}
	for i := 0; i < 5; i++ {
		if err := store.ApplyNodeChange(canvas.NodeChange{
			Type: canvas.NodeMoved, NodeID: "step-1", Position: &pos, Final: true,
		}); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, "coalesced save", func() bool { return saver.count() >= 1 })
	time.Sleep(60 * time.Millisecond)
	if got := saver.count(); got != 1 {
		t.Errorf("save count = %d, want the burst coalesced into 1", got)
	}
	if store.Dirty() {
		t.Error("store still dirty after successful save")
	}
}

func TestPeriodicSaveOnlyWhenDirty(t *testing.T) {
	store := seededStore()
	saver := &fakeSaver{}
	svc := NewService(Config{
		ProjectID: 1,
		Store:     store,
		Saver:     saver,
		Interval:  20 * time.Millisecond,
		Coalesce:  time.Hour, // isolate the periodic path
	})
	svc.Start(context.Background())
	defer svc.Stop()

	time.Sleep(70 * time.Millisecond)
	if got := saver.count(); got != 0 {
		t.Errorf("clean store saved %d times, want 0", got)
	}

	// An intermediate (non-final) move dirties the layout without firing
	// a structural event, so only the timer can pick it up.
	pos := canvas.Position{X: 42, Y: 42}
	if err := store.ApplyNodeChange(canvas.NodeChange{
		Type: canvas.NodeMoved, NodeID: "step-1", Position: &pos,
	}); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "periodic save", func() bool { return saver.count() >= 1 })
}

func TestFailedSaveRetriesAndKeepsDirty(t *testing.T) {
	store := seededStore()
	saver := &fakeSaver{}
	saver.setErr(errors.New("backend unreachable"))
	svc := NewService(Config{
		ProjectID: 1,
		Store:     store,
		Saver:     saver,
		Interval:  20 * time.Millisecond,
		Coalesce:  5 * time.Millisecond,
	})
	svc.Start(context.Background())
	defer svc.Stop()

	pos := canvas.Position{X: 10, Y: 10}
	if err := store.ApplyNodeChange(canvas.NodeChange{
		Type: canvas.NodeMoved, NodeID: "step-1", Position: &pos, Final: true,
	}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "failed attempt recorded", func() bool {
		_, err := svc.LastSaved()
		return err != nil
	})
	if !store.Dirty() {
		t.Error("store not dirty after failed save")
	}

	saver.setErr(nil)
	waitFor(t, "retry on next tick", func() bool { return saver.count() >= 1 })
	waitFor(t, "dirty cleared", func() bool { return !store.Dirty() })
}

func TestManualSaveBypassesCoalescing(t *testing.T) {
	store := seededStore()
	saver := &fakeSaver{}
	svc := NewService(Config{
		ProjectID: 1,
		Store:     store,
		Saver:     saver,
		Interval:  time.Hour,
		Coalesce:  time.Hour,
	})

	if err := svc.Save(context.Background()); err != nil {
		t.Fatal(err)
	}
	if saver.count() != 1 {
		t.Fatalf("manual save count = %d, want 1", saver.count())
	}
	if len(saver.calls[0].Nodes) != 2 {
		t.Errorf("snapshot nodes = %d, want 2", len(saver.calls[0].Nodes))
	}
	when, err := svc.LastSaved()
	if err != nil || when.IsZero() {
		t.Errorf("LastSaved = %v, %v", when, err)
	}
}

func TestStopFlushesDirtyLayout(t *testing.T) {
	store := seededStore()
	saver := &fakeSaver{}
	svc := NewService(Config{
		ProjectID: 1,
		Store:     store,
		Saver:     saver,
		Interval:  time.Hour,
		Coalesce:  time.Hour,
	})
	svc.Start(context.Background())

	pos := canvas.Position{X: 5, Y: 5}
	if err := store.ApplyNodeChange(canvas.NodeChange{
		Type: canvas.NodeMoved, NodeID: "sheet-1", Position: &pos, Final: true,
	}); err != nil {
		t.Fatal(err)
	}

	svc.Stop()
	if saver.count() != 1 {
		t.Errorf("save count after stop = %d, want final flush", saver.count())
	}
}
