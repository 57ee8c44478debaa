package parallax

import (
	"sync"
	"sync/atomic"
)

// Stream is an ordered sequence of operations executing asynchronously.
// Operations within a stream run in submission order; operations in
// different streams may run concurrently. Work dispatched onto a stream
// is not guaranteed visible to the host until the stream is fenced.
type Stream struct {
	id    int
	tasks chan func()
	done  chan struct{}
	wg    sync.WaitGroup
}

// Token tracks one pending operation on a stream. It is the visible
// form of the completion contract: the operation's effects are
// guaranteed observable only after Wait returns.
type Token struct {
	done chan struct{}
	err  error
}

// Wait blocks until the tracked operation has completed.
func (t *Token) Wait() {
	if t == nil {
		return
	}
	<-t.done
}

// Err returns the error of the tracked operation, if any. Valid only
// after the token has completed.
func (t *Token) Err() error {
	if t == nil {
		return nil
	}
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Done reports completion without blocking.
func (t *Token) Done() bool {
	if t == nil {
		return true
	}
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

var (
	streamID      int32
	defaultStream *Stream
	streamMu      sync.Mutex
	streams       []*Stream
)

func init() {
	defaultStream = NewStream()
}

// DefaultStream returns the process-wide default stream.
func DefaultStream() *Stream {
	return defaultStream
}

// NewStream creates a stream with its own worker goroutine.
func NewStream() *Stream {
	s := &Stream{
		id:    int(atomic.AddInt32(&streamID, 1)),
		tasks: make(chan func(), StreamQueueDepth),
		done:  make(chan struct{}),
	}
	go s.worker()

	streamMu.Lock()
	streams = append(streams, s)
	streamMu.Unlock()
	return s
}

func (s *Stream) worker() {
	for task := range s.tasks {
		task()
		s.wg.Done()
	}
	close(s.done)
}

// Submit enqueues a task and returns a Token for its completion.
func (s *Stream) Submit(task func()) *Token {
	return s.SubmitErr(func() error {
		task()
		return nil
	})
}

// SubmitErr enqueues a task whose error is carried on the returned
// Token. The error is set before the token completes, so Err is
// reliable after Wait returns.
func (s *Stream) SubmitErr(task func() error) *Token {
	tok := &Token{done: make(chan struct{})}
	s.wg.Add(1)
	s.tasks <- func() {
		tok.err = task()
		close(tok.done)
	}
	return tok
}

// Fence blocks until every operation submitted to this stream so far has
// completed.
func (s *Stream) Fence() {
	s.wg.Wait()
}

// Destroy stops the stream's worker after draining pending tasks. The
// default stream cannot be destroyed.
func (s *Stream) Destroy() {
	if s == defaultStream {
		return
	}
	s.wg.Wait()
	close(s.tasks)
	<-s.done

	streamMu.Lock()
	for i, other := range streams {
		if other == s {
			streams = append(streams[:i], streams[i+1:]...)
			break
		}
	}
	streamMu.Unlock()
}

// Fence blocks until all operations on all live streams have completed.
// This is the global synchronization point: deep-copy destinations and
// dispatch results are guaranteed visible to the host afterwards.
func Fence() {
	streamMu.Lock()
	live := make([]*Stream, len(streams))
	copy(live, streams)
	streamMu.Unlock()

	for _, s := range live {
		s.wg.Wait()
	}
}
