package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// fakeSession serves canned extraction payloads keyed by navigated URL
// substring, standing in for the real browser.
type fakeSession struct {
	mu        sync.Mutex
	pages     map[string]string // URL substring -> JSON payload for Evaluate
	failNav   map[string]error  // URL substring -> navigation error
	waitErr   error
	navigated []string
	closed    int
	current   string
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		pages:   map[string]string{},
		failNav: map[string]error{},
	}
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigated = append(s.navigated, url)
	for substr, err := range s.failNav {
		if strings.Contains(url, substr) {
			return err
		}
	}
	s.current = url
	return nil
}

func (s *fakeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.waitErr
}

func (s *fakeSession) Evaluate(ctx context.Context, js string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for substr, payload := range s.pages {
		if strings.Contains(s.current, substr) {
			return json.Unmarshal([]byte(payload), out)
		}
	}
	return json.Unmarshal([]byte("[]"), out)
}

func (s *fakeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
}

func factoryFor(s *fakeSession) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return s, nil
	}
}

func failingFactory(err error) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return nil, fmt.Errorf("launch: %w", err)
	}
}
