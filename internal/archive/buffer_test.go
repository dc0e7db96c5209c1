package archive

import (
	"sync"
	"testing"
)

func TestBuffer_PushDrain(t *testing.T) {
	buf := NewBuffer[int](10, 100)

	for i := 0; i < 5; i++ {
		if !buf.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if buf.Len() != 5 {
		t.Errorf("Len() = %d, want 5", buf.Len())
	}

	got := buf.DrainTo(3)
	if len(got) != 3 || got[0] != 0 || got[2] != 2 {
		t.Errorf("DrainTo(3) = %v, want [0 1 2]", got)
	}

	got = buf.DrainTo(0)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("DrainTo(0) = %v, want [3 4]", got)
	}

	if got := buf.DrainTo(0); got != nil {
		t.Errorf("DrainTo on empty = %v, want nil", got)
	}
}

func TestBuffer_GrowAt70Percent(t *testing.T) {
	buf := NewBuffer[int](10, 100)

	for i := 0; i < 7; i++ {
		buf.Push(i)
	}

	stats := buf.Stats()
	if stats.Capacity <= 10 {
		t.Errorf("Capacity = %d, expected growth after 70%% fill", stats.Capacity)
	}
	if stats.ResizeCount != 1 {
		t.Errorf("ResizeCount = %d, want 1", stats.ResizeCount)
	}

	got := buf.DrainTo(0)
	for i := 0; i < 7; i++ {
		if got[i] != i {
			t.Errorf("item %d = %d", i, got[i])
		}
	}
}

func TestBuffer_GrowAfterWrap(t *testing.T) {
	buf := NewBuffer[int](10, 64)

	// Move head forward so the next grow copies a wrapped region.
	for i := 0; i < 5; i++ {
		buf.Push(i)
	}
	buf.DrainTo(5)

	for i := 0; i < 20; i++ {
		buf.Push(i)
	}

	got := buf.DrainTo(0)
	if len(got) != 20 {
		t.Fatalf("len = %d, want 20", len(got))
	}
	for i := range got {
		if got[i] != i {
			t.Fatalf("item %d = %d, want %d", i, got[i], i)
		}
	}
}

func TestBuffer_DropsOldestAtMax(t *testing.T) {
	buf := NewBuffer[int](2, 4)

	for i := 0; i < 10; i++ {
		if !buf.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	stats := buf.Stats()
	if stats.Capacity != 4 {
		t.Errorf("Capacity = %d, want 4", stats.Capacity)
	}
	if stats.Dropped != 6 {
		t.Errorf("Dropped = %d, want 6", stats.Dropped)
	}

	got := buf.DrainTo(0)
	want := []int{6, 7, 8, 9}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestBuffer_Close(t *testing.T) {
	buf := NewBuffer[int](4, 4)
	buf.Push(1)
	buf.Close()

	if buf.Push(2) {
		t.Error("Push after Close should return false")
	}
	if got := buf.DrainTo(0); len(got) != 1 || got[0] != 1 {
		t.Errorf("DrainTo after Close = %v, want [1]", got)
	}
}

func TestBuffer_Notify(t *testing.T) {
	buf := NewBuffer[int](4, 4)

	buf.Push(1)
	buf.Push(2)

	select {
	case <-buf.Notify():
	default:
		t.Fatal("expected a notification after Push")
	}

	// Pushes coalesce into one pending signal.
	select {
	case <-buf.Notify():
		t.Fatal("expected a single coalesced notification")
	default:
	}
}

func TestBuffer_ConcurrentPush(t *testing.T) {
	buf := NewBuffer[int](8, 10000)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				buf.Push(i)
			}
		}()
	}
	wg.Wait()

	stats := buf.Stats()
	if stats.Count != 800 || stats.TotalPushed != 800 || stats.Dropped != 0 {
		t.Errorf("Stats = %+v, want 800 items and no drops", stats)
	}
}
