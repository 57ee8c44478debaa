package parallax

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestStreamOrdering(t *testing.T) {
	s := NewStream()
	defer s.Destroy()

	const n = 100
	var order []int
	for i := 0; i < n; i++ {
		i := i
		s.Submit(func() {
			order = append(order, i)
		})
	}
	s.Fence()

	if len(order) != n {
		t.Fatalf("%d tasks ran, want %d", len(order), n)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("task %d ran at position %d: stream order violated", v, i)
		}
	}
}

func TestTokenCompletion(t *testing.T) {
	s := NewStream()
	defer s.Destroy()

	release := make(chan struct{})
	var ran atomic.Bool
	tok := s.Submit(func() {
		<-release
		ran.Store(true)
	})

	if tok.Done() {
		t.Error("token reports done while task is blocked")
	}
	close(release)
	tok.Wait()
	if !tok.Done() || !ran.Load() {
		t.Error("token not done after wait")
	}

	var nilTok *Token
	nilTok.Wait() // must not block
	if !nilTok.Done() {
		t.Error("nil token must report done")
	}
}

func TestTokenCarriesTaskError(t *testing.T) {
	s := NewStream()
	defer s.Destroy()

	want := NewBackendError("Launch", "resource exhausted", nil)
	tok := s.SubmitErr(func() error {
		return want
	})
	tok.Wait()
	if !errors.Is(tok.Err(), want) {
		t.Errorf("token error = %v, want %v", tok.Err(), want)
	}

	ok := s.SubmitErr(func() error { return nil })
	ok.Wait()
	if ok.Err() != nil {
		t.Errorf("successful task carries error %v", ok.Err())
	}

	var nilTok *Token
	if nilTok.Err() != nil {
		t.Error("nil token must report no error")
	}
}

func TestGlobalFence(t *testing.T) {
	s1 := NewStream()
	s2 := NewStream()
	defer s1.Destroy()
	defer s2.Destroy()

	var completed atomic.Int32
	for i := 0; i < 10; i++ {
		s1.Submit(func() {
			time.Sleep(time.Millisecond)
			completed.Add(1)
		})
		s2.Submit(func() {
			completed.Add(1)
		})
	}
	Fence()
	if completed.Load() != 20 {
		t.Errorf("%d tasks complete after fence, want 20", completed.Load())
	}
}

func TestDefaultStreamSurvivesDestroy(t *testing.T) {
	DefaultStream().Destroy() // must be a no-op

	tok := DefaultStream().Submit(func() {})
	tok.Wait()
}

func TestStreamsRunConcurrently(t *testing.T) {
	s1 := NewStream()
	s2 := NewStream()
	defer s1.Destroy()
	defer s2.Destroy()

	// A task on s2 can complete while s1 is blocked, so streams are
	// not serialized against each other.
	blocker := make(chan struct{})
	s1.Submit(func() { <-blocker })
	tok := s2.Submit(func() {})

	done := make(chan struct{})
	go func() {
		tok.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("stream s2 blocked behind unrelated stream s1")
	}
	close(blocker)
	s1.Fence()
}
