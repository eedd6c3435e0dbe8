package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/faersight/internal/core/domain"
	"github.com/custodia-labs/faersight/internal/core/ports/driven"
)

// stubEmbedder returns fixed vectors, or a vector derived from the text
// length when none is registered. Queued errors are returned first.
type stubEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	errs    []error
	calls   atomic.Int32
	release chan struct{}
	model   string
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{vectors: make(map[string][]float32), model: "stub-embed"}
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	s.calls.Add(1)
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{float32(len(text)), 1}, nil
}

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := s.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (s *stubEmbedder) Dimensions() int               { return 2 }
func (s *stubEmbedder) ModelName() string             { return s.model }
func (s *stubEmbedder) Ping(_ context.Context) error  { return nil }
func (s *stubEmbedder) Close() error                  { return nil }
func (s *stubEmbedder) Calls() int                    { return int(s.calls.Load()) }
func (s *stubEmbedder) set(text string, v ...float32) { s.vectors[text] = v }
func (s *stubEmbedder) failWith(errs ...error)        { s.errs = append(s.errs, errs...) }

// brokenStore fails every operation.
type brokenStore struct{}

var errBrokenStore = errors.New("store is broken")

func (brokenStore) LoadAll(context.Context, string) (map[string][]float32, error) {
	return nil, errBrokenStore
}
func (brokenStore) Get(context.Context, string, string) ([]float32, bool, error) {
	return nil, false, errBrokenStore
}
func (brokenStore) Put(context.Context, string, string, []float32) error { return errBrokenStore }
func (brokenStore) Count(context.Context, string) (int, error)           { return 0, errBrokenStore }
func (brokenStore) Close() error                                         { return nil }

// stubLLM records every conversation and answers with a fixed reply per call.
type stubLLM struct {
	mu      sync.Mutex
	convos  [][]driven.ChatMessage
	opts    []driven.ChatOptions
	replies []string
	err     error
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	return s.Chat(ctx, []driven.ChatMessage{{Role: driven.RoleUser, Content: prompt}}, driven.ChatOptions{})
}

func (s *stubLLM) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.convos = append(s.convos, messages)
	s.opts = append(s.opts, opts)
	if len(s.replies) == 0 {
		return "reply", nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r, nil
}

func (s *stubLLM) ModelName() string            { return "stub-llm" }
func (s *stubLLM) Ping(_ context.Context) error { return nil }
func (s *stubLLM) Close() error                 { return nil }

// stubLiterature returns fixed records.
type stubLiterature struct {
	records []domain.LiteratureRecord
	err     error
	queries []string
}

func (s *stubLiterature) Search(_ context.Context, query string, maxResults int) ([]domain.LiteratureRecord, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.records) > maxResults {
		return s.records[:maxResults], nil
	}
	return s.records, nil
}

// stubCaseSource counts loads.
type stubCaseSource struct {
	dataset *domain.Dataset
	err     error
	loads   atomic.Int32
}

func (s *stubCaseSource) Load(ctx context.Context) (*domain.Dataset, error) {
	s.loads.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.dataset, nil
}

// fakeClock returns a fixed instant.
func fakeClock() time.Time {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
}

// instantPolicy retries without waiting and records the waits it was asked for.
func instantPolicy(attempts int) (*RetryPolicy, *[]time.Duration) {
	p := NewRetryPolicy(domain.RetrySettings{
		MaxAttempts:    attempts,
		InitialBackoff: time.Second,
		MaxBackoff:     20 * time.Second,
	})
	var waits []time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	return p, &waits
}

func patientCase(id string, age float64, sex domain.Sex, weight float64, drugs []string, reactions ...string) domain.CaseRecord {
	c := domain.CaseRecord{
		PrimaryID: id,
		Demographics: domain.Demographics{
			Age:        domain.Some(age),
			AgeUnit:    domain.AgeUnitYear,
			Weight:     domain.Some(weight),
			WeightUnit: domain.WeightUnitKilogram,
			Sex:        sex,
		},
	}
	for _, d := range drugs {
		c.Drugs = append(c.Drugs, domain.Drug{Name: d, Role: domain.DrugRolePrimarySuspect})
	}
	for _, r := range reactions {
		c.Reactions = append(c.Reactions, domain.Reaction{Term: r})
	}
	return c
}
