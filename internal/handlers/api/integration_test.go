package api

import (
	"net/http"
	"testing"

	"seodesk/internal/models"
	"seodesk/internal/testutil"
)

func TestProjectLifecycle_Integration(t *testing.T) {
	database, cleanup := testutil.TestDB(t)
	defer cleanup()

	owner := testutil.CreateTestUser(t, database, "owner")
	other := testutil.CreateTestUser(t, database, "other")
	project := testutil.CreateTestProject(t, database, owner, "example.com")

	ownerApp := newTestApp(owner)
	projects := NewProjectHandler(database)
	keywords := NewKeywordHandler(database)
	ownerApp.Get("/api/projects/:id", projects.Get)
	ownerApp.Post("/api/projects/:id/keywords", keywords.Create)
	ownerApp.Get("/api/projects/:id/stats", projects.Stats)

	otherApp := newTestApp(other)
	otherApp.Get("/api/projects/:id", projects.Get)

	path := "/api/projects/" + project.ID.String()

	if status, _ := doRequest(t, otherApp, "GET", path, "", nil); status != http.StatusNotFound {
		t.Errorf("other user GET status = %d, want 404", status)
	}
	if status, _ := doRequest(t, ownerApp, "GET", path, "", nil); status != http.StatusOK {
		t.Errorf("owner GET status = %d, want 200", status)
	}

	status, env := doRequest(t, ownerApp, "POST", path+"/keywords", `{"keywords":"seo tools, SEO Tools, rank tracker"}`, nil)
	if status != http.StatusCreated {
		t.Fatalf("bulk create status = %d, want 201 (%s)", status, env.Error)
	}
	var created struct {
		Created []models.Keyword `json:"created"`
		Skipped []string         `json:"skipped"`
	}
	decodeData(t, env, &created)
	if len(created.Created) != 2 {
		t.Errorf("created %d keywords, want 2", len(created.Created))
	}

	if status, _ := doRequest(t, ownerApp, "POST", path+"/keywords", `{"keyword":"Rank Tracker"}`, nil); status != http.StatusConflict {
		t.Errorf("duplicate keyword status = %d, want 409", status)
	}

	status, env = doRequest(t, ownerApp, "GET", path+"/stats", "", nil)
	if status != http.StatusOK {
		t.Fatalf("stats status = %d, want 200", status)
	}
	var stats models.ProjectStats
	decodeData(t, env, &stats)
	if stats.Keywords != 2 {
		t.Errorf("stats.Keywords = %d, want 2", stats.Keywords)
	}
}
