package middleware

import (
	"context"
	"reflect"
	"regexp"

	"github.com/Himanshu040604/PregelFlow/pkg/domain"
	"github.com/Himanshu040604/PregelFlow/pkg/ports"
)

// Mask replaces redacted values in persisted state.
const Mask = "***"

type piiMiddleware struct {
	next     ports.CheckpointStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks state values whose keys
// match any of the patterns before they reach the store. Masked values are
// not recoverable: a resumed run sees Mask in their place.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, cp *domain.Checkpoint) error {
	// Never touch the executor's in-memory checkpoint.
	cloned := cp.Clone()
	maskMap(cloned.State, m.patterns)
	return m.next.Save(ctx, cloned)
}

func (m *piiMiddleware) LoadLatest(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	return m.next.LoadLatest(ctx, sessionID)
}

func (m *piiMiddleware) History(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error) {
	return m.next.History(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = maskValue(m[k])
				break
			}
		}
		if subMap, ok := m[k].(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}

// maskValue keeps sequences as sequences so APPEND fields still load.
func maskValue(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return Mask
	}
	masked := make([]any, rv.Len())
	for i := range masked {
		masked[i] = Mask
	}
	return masked
}
