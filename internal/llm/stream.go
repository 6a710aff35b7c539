package llm

import (
	"context"
	"io"
)

// Stream bridges the SDK's push-style streaming callback into the pull
// surface the orchestrator drains. It is finite and not restartable: Recv
// yields fragments in arrival order, then io.EOF on completion or the
// terminating error on failure.
type Stream struct {
	fragments chan string
	err       error // written before fragments closes
}

func newStream() *Stream {
	return &Stream{fragments: make(chan string)}
}

func (s *Stream) Recv() (string, error) {
	fragment, ok := <-s.fragments
	if ok {
		return fragment, nil
	}
	if s.err != nil {
		return "", s.err
	}
	return "", io.EOF
}

func (s *Stream) push(ctx context.Context, fragment string) error {
	select {
	case s.fragments <- fragment:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Stream) finish(err error) {
	s.err = err
	close(s.fragments)
}
