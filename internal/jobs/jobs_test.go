package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"seodesk/internal/config"
	"seodesk/internal/dataforseo"
	"seodesk/internal/gsc"
	"seodesk/internal/models"
	"seodesk/internal/seo"
)

type fakeRankStore struct {
	projects   []models.Project
	keywords   map[uuid.UUID][]models.Keyword
	keywordErr map[uuid.UUID]error
	rankings   []models.Ranking
}

func (s *fakeRankStore) ListAllProjects(context.Context) ([]models.Project, error) {
	return s.projects, nil
}

func (s *fakeRankStore) ListKeywords(_ context.Context, projectID uuid.UUID) ([]models.Keyword, error) {
	if err := s.keywordErr[projectID]; err != nil {
		return nil, err
	}
	return s.keywords[projectID], nil
}

func (s *fakeRankStore) InsertRanking(_ context.Context, r *models.Ranking) error {
	s.rankings = append(s.rankings, *r)
	return nil
}

type fakeSERP struct {
	results map[string][]seo.OrganicResult
	fail    map[string]bool
	reqs    []dataforseo.SERPRequest
}

func (f *fakeSERP) SERP(_ context.Context, req dataforseo.SERPRequest) (*seo.SERP, error) {
	f.reqs = append(f.reqs, req)
	if f.fail[req.Keyword] {
		return nil, errors.New("provider down")
	}
	return &seo.SERP{Keyword: req.Keyword, Items: f.results[req.Keyword]}, nil
}

func TestRankChecker_RunOnce(t *testing.T) {
	p1 := models.Project{ID: uuid.New(), UserID: uuid.New(), Domain: "https://www.mysite.com/"}
	p2 := models.Project{ID: uuid.New(), UserID: uuid.New(), Domain: "other.com", TargetLocation: 2826, TargetLanguage: "en"}
	p3 := models.Project{ID: uuid.New(), UserID: uuid.New(), Domain: "broken.com"}

	found := models.Keyword{ID: uuid.New(), Keyword: "seo tools"}
	missing := models.Keyword{ID: uuid.New(), Keyword: "rank tracker"}
	failing := models.Keyword{ID: uuid.New(), Keyword: "backlinks"}

	store := &fakeRankStore{
		projects: []models.Project{p1, p2, p3},
		keywords: map[uuid.UUID][]models.Keyword{
			p1.ID: {found, failing},
			p2.ID: {missing},
		},
		keywordErr: map[uuid.UUID]error{p3.ID: errors.New("db error")},
	}
	serp := &fakeSERP{
		results: map[string][]seo.OrganicResult{
			"seo tools": {
				{URL: "https://competitor.com/x", RankAbsolute: 1},
				{URL: "https://www.mysite.com/tools", RankAbsolute: 3},
			},
			"rank tracker": {{URL: "https://competitor.com/y", RankAbsolute: 1}},
		},
		fail: map[string]bool{"backlinks": true},
	}

	rc := NewRankChecker(store, serp, config.RankCheckConfig{Device: "mobile", Depth: 50}, 0)
	res, err := rc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if res.KeywordsChecked != 3 {
		t.Errorf("KeywordsChecked = %d, want 3", res.KeywordsChecked)
	}
	if res.TotalChecked != 1 {
		t.Errorf("TotalChecked = %d, want 1", res.TotalChecked)
	}
	if res.TotalErrors != 2 {
		t.Errorf("TotalErrors = %d, want 2 (one keyword, one project)", res.TotalErrors)
	}

	if len(store.rankings) != 1 {
		t.Fatalf("stored %d rankings, want 1", len(store.rankings))
	}
	r := store.rankings[0]
	if r.KeywordID != found.ID || r.ProjectID != p1.ID {
		t.Errorf("ranking ids = %v/%v", r.KeywordID, r.ProjectID)
	}
	if r.RankPosition != 3 || r.RankAbsolute != 3 {
		t.Errorf("position = %d, want 3", r.RankPosition)
	}
	if r.RankURL == nil || *r.RankURL != "https://www.mysite.com/tools" {
		t.Errorf("RankURL = %v", r.RankURL)
	}
	if r.Device != "mobile" || r.LocationCode != 2840 || r.LanguageCode != "en" {
		t.Errorf("locale = %s/%d/%s", r.Device, r.LocationCode, r.LanguageCode)
	}

	for _, req := range serp.reqs {
		if req.Keyword == "rank tracker" && req.Locale.LocationCode != 2826 {
			t.Errorf("project locale not used: %+v", req.Locale)
		}
		if req.Depth != 50 {
			t.Errorf("Depth = %d, want 50", req.Depth)
		}
	}
}

func TestRankChecker_CancelledContext(t *testing.T) {
	p := models.Project{ID: uuid.New(), Domain: "mysite.com"}
	store := &fakeRankStore{
		projects: []models.Project{p},
		keywords: map[uuid.UUID][]models.Keyword{p.ID: {{ID: uuid.New(), Keyword: "a"}}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	serp := &fakeSERP{}
	_, err := NewRankChecker(store, serp, config.RankCheckConfig{}, 0).RunOnce(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("RunOnce() error = %v, want context.Canceled", err)
	}
	if len(serp.reqs) != 0 {
		t.Errorf("SERP called %d times after cancel", len(serp.reqs))
	}
}

type fakeGSCStore struct {
	tokens []models.GSCToken
	err    error
}

func (s *fakeGSCStore) ListGSCTokens(context.Context) ([]models.GSCToken, error) {
	return s.tokens, s.err
}

func (s *fakeGSCStore) UpdateGSCAccessToken(context.Context, *models.GSCToken) error { return nil }

func (s *fakeGSCStore) UpsertGSCRows(_ context.Context, rows []models.GSCRow) (int, error) {
	return len(rows), nil
}

type fakeSyncer struct {
	fail  map[uuid.UUID]bool
	calls []uuid.UUID
	days  int
}

func (f *fakeSyncer) Sync(_ context.Context, _ gsc.Store, t *models.GSCToken, days int) (*gsc.SyncResult, error) {
	f.calls = append(f.calls, t.ProjectID)
	f.days = days
	if f.fail[t.ProjectID] {
		return nil, gsc.ErrNoRefreshToken
	}
	return &gsc.SyncResult{RowsFetched: 10, RowsInserted: 10}, nil
}

func TestGSCSync_RunOnce(t *testing.T) {
	ok1, ok2, bad, noSite := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	store := &fakeGSCStore{tokens: []models.GSCToken{
		{ProjectID: ok1, SiteURL: "https://a.com/"},
		{ProjectID: bad, SiteURL: "https://b.com/"},
		{ProjectID: noSite},
		{ProjectID: ok2, SiteURL: "sc-domain:c.com"},
	}}
	syncer := &fakeSyncer{fail: map[uuid.UUID]bool{bad: true}}

	res, err := NewGSCSync(store, syncer, 7, 0).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if res.TotalSynced != 2 || res.TotalErrors != 1 || res.RowsInserted != 20 {
		t.Errorf("result = %+v, want 2 synced, 1 error, 20 rows", res)
	}
	if len(syncer.calls) != 3 {
		t.Errorf("Sync called %d times, want 3 (no-site token skipped)", len(syncer.calls))
	}
	if syncer.days != 7 {
		t.Errorf("days = %d, want 7", syncer.days)
	}
}

func TestGSCSync_ListError(t *testing.T) {
	store := &fakeGSCStore{err: errors.New("db down")}
	if _, err := NewGSCSync(store, &fakeSyncer{}, 7, 0).RunOnce(context.Background()); err == nil {
		t.Error("RunOnce() error = nil, want error")
	}
}
