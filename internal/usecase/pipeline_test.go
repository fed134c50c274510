package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"PositiveNews/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	sources   []domain.Source
	keywords  []domain.Keyword
	existing  map[string]bool
	settings  map[string]string
	published [][]domain.Article

	publishErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sources:  []domain.Source{{Name: "feed", URL: "https://feed.example/rss", Enabled: true}},
		existing: map[string]bool{},
		settings: map[string]string{},
	}
}

func (s *fakeStore) ExistingURLs(context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	urls := map[string]bool{}
	for u := range s.existing {
		urls[u] = true
	}
	return urls, nil
}

func (s *fakeStore) PublishBatch(_ context.Context, articles []domain.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.publishErr != nil {
		return s.publishErr
	}
	s.published = append(s.published, articles)
	for _, a := range articles {
		s.existing[a.OriginalURL] = true
	}
	return nil
}

func (s *fakeStore) EnabledSources(context.Context) ([]domain.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources, nil
}

func (s *fakeStore) Keywords(context.Context) ([]domain.Keyword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keywords, nil
}

func (s *fakeStore) Setting(_ context.Context, key, fallback string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.settings[key]; ok {
		return v
	}
	return fallback
}

func (s *fakeStore) SaveSetting(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[key] = value
	return nil
}

func (s *fakeStore) AdvanceStatuses(context.Context, time.Time, time.Duration) error {
	return nil
}

func (s *fakeStore) batches() [][]domain.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
}

type fakeSource struct {
	candidates []domain.Candidate
}

func (f *fakeSource) FetchAll(context.Context, []domain.Source) []domain.Candidate {
	return f.candidates
}

type scriptedOracle struct {
	scores map[string]float64
	gate   chan struct{} // when set, Evaluate blocks until closed
	began  chan struct{}
	once   sync.Once
}

func (o *scriptedOracle) Evaluate(_ context.Context, c domain.Candidate, _ string) (domain.Evaluation, error) {
	if o.gate != nil {
		o.once.Do(func() { close(o.began) })
		<-o.gate
	}
	score, ok := o.scores[c.URL]
	if !ok {
		score = 5.0
	}
	return domain.Evaluation{Score: score, Reason: "scripted", Category: "world"}, nil
}

type fakeGenerator struct{ fail bool }

func (g *fakeGenerator) Generate(_ context.Context, c domain.Candidate) (domain.Draft, error) {
	if g.fail {
		return domain.Draft{}, fmt.Errorf("oracle down")
	}
	return domain.Draft{Headline: "rewritten: " + c.Title, Content: "p1\n\np2", ImageQuery: "sunrise"}, nil
}

type fakeImages struct{}

func (fakeImages) Find(context.Context, string) domain.Image {
	return domain.Image{URL: "https://img.example/x.jpg", Alt: "x"}
}

func testCandidates(n int) []domain.Candidate {
	out := make([]domain.Candidate, n)
	for i := range out {
		out[i] = domain.Candidate{
			Title:       fmt.Sprintf("news %d", i),
			Description: "something happened",
			URL:         fmt.Sprintf("https://news.example/%d", i),
			SourceName:  "feed",
			Language:    "en",
			PublishedAt: time.Now().UTC(),
		}
	}
	return out
}

func newTestPipeline(store *fakeStore, source *fakeSource, oracle *scriptedOracle, gen *fakeGenerator) *Pipeline {
	return NewPipeline(PipelineDeps{
		Store:              store,
		Source:             source,
		Oracle:             oracle,
		Generator:          gen,
		Images:             fakeImages{},
		OracleBudget:       25,
		DefaultMinScore:    6.0,
		DefaultMaxArticles: 6,
	})
}

func TestRunPublishesTopCandidates(t *testing.T) {
	t.Parallel()

	cands := testCandidates(20)
	scores := map[string]float64{}
	for i, c := range cands {
		if i < 4 {
			scores[c.URL] = 8.0 // above the 6.0 minimum
		} else {
			scores[c.URL] = 3.0
		}
	}

	store := newFakeStore()
	pipeline := newTestPipeline(store, &fakeSource{candidates: cands}, &scriptedOracle{scores: scores}, &fakeGenerator{})

	pipeline.Run(context.Background())

	batches := store.batches()
	if len(batches) != 1 || len(batches[0]) != 4 {
		t.Fatalf("expected one batch of 4 articles, got %+v", batches)
	}
	for _, a := range batches[0] {
		if !strings.HasPrefix(a.Title, "rewritten:") {
			t.Fatalf("article not synthesized: %q", a.Title)
		}
		if a.Image.URL == "" {
			t.Fatal("article missing image")
		}
		if a.Status != domain.StatusHot {
			t.Fatalf("new article status %q, want hot", a.Status)
		}
	}

	status := pipeline.Status()
	if status.Phase != PhaseDone || status.Running {
		t.Fatalf("unexpected terminal status: %+v", status)
	}
	if !strings.Contains(status.LastRunResult, "published 4 articles") {
		t.Fatalf("unexpected outcome: %q", status.LastRunResult)
	}
	if store.Setting(context.Background(), "last_run_ts", "") == "" {
		t.Fatal("last run timestamp not persisted")
	}
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	t.Parallel()

	cands := testCandidates(3)
	scores := map[string]float64{}
	for _, c := range cands {
		scores[c.URL] = 9.0
	}

	store := newFakeStore()
	pipeline := newTestPipeline(store, &fakeSource{candidates: cands}, &scriptedOracle{scores: scores}, &fakeGenerator{})

	pipeline.Run(context.Background())
	pipeline.Run(context.Background())

	batches := store.batches()
	if len(batches) != 1 {
		t.Fatalf("second run must not re-publish known URLs, got %d batches", len(batches))
	}
	status := pipeline.Status()
	if status.Phase != PhaseDone || !strings.Contains(status.LastRunResult, "no new articles") {
		t.Fatalf("expected empty outcome on re-run, got %+v", status)
	}
}

func TestRunSingleFlight(t *testing.T) {
	t.Parallel()

	cands := testCandidates(2)
	oracle := &scriptedOracle{
		scores: map[string]float64{cands[0].URL: 9, cands[1].URL: 9},
		gate:   make(chan struct{}),
		began:  make(chan struct{}),
	}
	store := newFakeStore()
	pipeline := newTestPipeline(store, &fakeSource{candidates: cands}, oracle, &fakeGenerator{})

	done := make(chan struct{})
	go func() {
		pipeline.Run(context.Background())
		close(done)
	}()

	<-oracle.began
	if !pipeline.Status().Running {
		t.Fatal("first run should be marked running")
	}

	// Second trigger while the first is mid-evaluation is a no-op.
	pipeline.Run(context.Background())

	close(oracle.gate)
	<-done

	if len(store.batches()) != 1 {
		t.Fatalf("expected exactly one published batch, got %d", len(store.batches()))
	}
}

func TestRunNothingAboveThreshold(t *testing.T) {
	t.Parallel()

	cands := testCandidates(5)
	scores := map[string]float64{}
	for _, c := range cands {
		scores[c.URL] = 4.5
	}

	store := newFakeStore()
	pipeline := newTestPipeline(store, &fakeSource{candidates: cands}, &scriptedOracle{scores: scores}, &fakeGenerator{})

	pipeline.Run(context.Background())

	if len(store.batches()) != 0 {
		t.Fatal("nothing should be published below the threshold")
	}
	status := pipeline.Status()
	if status.Phase != PhaseDone {
		t.Fatalf("empty run is not an error, got phase %q", status.Phase)
	}
	if !strings.Contains(status.LastRunResult, "6.0") || !strings.Contains(status.LastRunResult, "4.50") {
		t.Fatalf("outcome must cite threshold and best score, got %q", status.LastRunResult)
	}
}

func TestRunNoEnabledSources(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.sources = nil
	pipeline := newTestPipeline(store, &fakeSource{}, &scriptedOracle{}, &fakeGenerator{})

	pipeline.Run(context.Background())

	status := pipeline.Status()
	if status.Phase != PhaseError {
		t.Fatalf("expected error phase, got %q", status.Phase)
	}
	if !strings.Contains(status.LastRunResult, "no enabled feed sources") {
		t.Fatalf("unexpected outcome: %q", status.LastRunResult)
	}
	if status.Running {
		t.Fatal("guard not released after error")
	}
}

func TestRunPublishFailureIsFatalToRun(t *testing.T) {
	t.Parallel()

	cands := testCandidates(2)
	store := newFakeStore()
	store.publishErr = fmt.Errorf("disk full: %s", strings.Repeat("x", 300))
	pipeline := newTestPipeline(store, &fakeSource{candidates: cands},
		&scriptedOracle{scores: map[string]float64{cands[0].URL: 9, cands[1].URL: 9}}, &fakeGenerator{})

	pipeline.Run(context.Background())

	status := pipeline.Status()
	if status.Phase != PhaseError {
		t.Fatalf("expected error phase, got %q", status.Phase)
	}
	if len([]rune(status.LastRunResult)) > 120 {
		t.Fatalf("error outcome not truncated: %d runes", len([]rune(status.LastRunResult)))
	}
	if len(store.batches()) != 0 {
		t.Fatal("no batch may be recorded after a failed publish")
	}

	// The guard is released; the next trigger may proceed.
	store.mu.Lock()
	store.publishErr = nil
	store.mu.Unlock()
	pipeline.Run(context.Background())
	if len(store.batches()) != 1 {
		t.Fatal("pipeline should recover on the next run")
	}
}

func TestRunGenerationFallback(t *testing.T) {
	t.Parallel()

	cands := testCandidates(1)
	store := newFakeStore()
	pipeline := newTestPipeline(store, &fakeSource{candidates: cands},
		&scriptedOracle{scores: map[string]float64{cands[0].URL: 9}}, &fakeGenerator{fail: true})

	pipeline.Run(context.Background())

	batches := store.batches()
	if len(batches) != 1 || len(batches[0]) != 1 {
		t.Fatalf("fallback draft must still publish, got %+v", batches)
	}
	a := batches[0][0]
	if a.Title != cands[0].Title || a.Content != cands[0].Description {
		t.Fatalf("expected deterministic fallback copy, got %+v", a)
	}
}
