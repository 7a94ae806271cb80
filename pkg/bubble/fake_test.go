package bubble

import (
	"context"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/elonfeng/bubbles/pkg/source"
)

type fakeCollector struct {
	mu         sync.Mutex
	hot        map[string][]source.Thread
	hotErr     map[string]error
	comments   map[string][]source.Comment
	commentErr map[string]error
	calls      []string
}

func (f *fakeCollector) Name() source.SourceType { return source.SourceReddit }

func (f *fakeCollector) ListHot(_ context.Context, community string, _ int) ([]source.Thread, error) {
	if err := f.hotErr[community]; err != nil {
		return nil, err
	}
	return f.hot[community], nil
}

func (f *fakeCollector) TopComments(_ context.Context, threadID, _ string, limit int) ([]source.Comment, error) {
	f.mu.Lock()
	f.calls = append(f.calls, threadID)
	f.mu.Unlock()

	if err := f.commentErr[threadID]; err != nil {
		return nil, err
	}
	out := f.comments[threadID]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
