package api

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"seodesk/internal/db"
	"seodesk/internal/models"
	"seodesk/internal/validation"
)

const (
	defaultRankingDays = 30
	maxRankingDays     = 365
	maxBulkKeywords    = 500
)

// KeywordHandler handles tracked keywords and their ranking history.
type KeywordHandler struct {
	db *db.DB
}

// NewKeywordHandler creates a new API keyword handler.
func NewKeywordHandler(database *db.DB) *KeywordHandler {
	return &KeywordHandler{db: database}
}

// List returns the keywords tracked by a project.
func (h *KeywordHandler) List(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}

	keywords, err := h.db.ListKeywords(c.Context(), project.ID)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch keywords")
	}
	if keywords == nil {
		keywords = []models.Keyword{}
	}
	return jsonSuccess(c, keywords)
}

// Create tracks one keyword, or a newline/comma separated list in "keywords".
// Keywords the project already tracks are reported as skipped.
func (h *KeywordHandler) Create(c fiber.Ctx) error {
	project, done := ownedProject(c, h.db)
	if project == nil {
		return done
	}

	var body struct {
		Keyword  string   `json:"keyword"`
		Keywords string   `json:"keywords"`
		Tags     []string `json:"tags"`
		Category string   `json:"category"`
	}
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "invalid request body")
	}

	list := keywordList(body.Keyword, body.Keywords)
	if len(list) == 0 {
		return jsonError(c, fiber.StatusBadRequest, "keyword is required")
	}
	if len(list) > maxBulkKeywords {
		return jsonError(c, fiber.StatusBadRequest, "too many keywords in one request")
	}
	for _, kw := range list {
		if valid, msg := validation.ValidateKeyword(kw); !valid {
			return jsonError(c, fiber.StatusBadRequest, msg)
		}
	}

	var category *string
	if cat := strings.TrimSpace(body.Category); cat != "" {
		category = &cat
	}

	created := []models.Keyword{}
	skipped := []string{}
	for _, kw := range list {
		k := &models.Keyword{
			ProjectID: project.ID,
			Keyword:   kw,
			Tags:      body.Tags,
			Category:  category,
		}
		if err := h.db.CreateKeyword(c.Context(), k); err != nil {
			if errors.Is(err, db.ErrDuplicateKeyword) {
				skipped = append(skipped, kw)
				continue
			}
			return jsonError(c, fiber.StatusInternalServerError, "failed to create keyword")
		}
		created = append(created, *k)
	}

	if len(created) == 0 && len(list) == 1 {
		return jsonError(c, fiber.StatusConflict, db.ErrDuplicateKeyword.Error())
	}
	return jsonCreated(c, fiber.Map{"created": created, "skipped": skipped})
}

// Delete stops tracking a keyword.
func (h *KeywordHandler) Delete(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid keyword id")
	}

	if err := h.db.DeleteKeyword(c.Context(), id, user.ID); err != nil {
		if errors.Is(err, db.ErrKeywordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "keyword not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to delete keyword")
	}
	return jsonSuccess(c, fiber.Map{"deleted": true})
}

// Rankings returns the ranking history of a keyword over ?days (default 30).
func (h *KeywordHandler) Rankings(c fiber.Ctx) error {
	user, ok := currentUser(c)
	if !ok {
		return jsonError(c, fiber.StatusUnauthorized, "unauthorized")
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return jsonError(c, fiber.StatusBadRequest, "invalid keyword id")
	}

	keyword, err := h.db.GetKeyword(c.Context(), id, user.ID)
	if err != nil {
		if errors.Is(err, db.ErrKeywordNotFound) {
			return jsonError(c, fiber.StatusNotFound, "keyword not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch keyword")
	}

	days := clampDays(fiber.Query[int](c, "days", defaultRankingDays))
	since := time.Now().AddDate(0, 0, -days)
	rankings, err := h.db.ListRankings(c.Context(), keyword.ID, since)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "failed to fetch rankings")
	}
	if rankings == nil {
		rankings = []models.Ranking{}
	}
	return jsonSuccess(c, fiber.Map{"keyword": keyword, "days": days, "rankings": rankings})
}

// keywordList combines the single and bulk keyword fields, normalized and
// deduplicated case-insensitively.
func keywordList(single, bulk string) []string {
	var raw []string
	if kw := validation.NormalizeKeyword(single); kw != "" {
		raw = append(raw, kw)
	}
	raw = append(raw, validation.ParseKeywordList(bulk)...)

	seen := make(map[string]bool, len(raw))
	list := make([]string, 0, len(raw))
	for _, kw := range raw {
		key := validation.KeywordKey(kw)
		if seen[key] {
			continue
		}
		seen[key] = true
		list = append(list, kw)
	}
	return list
}

func clampDays(days int) int {
	switch {
	case days <= 0:
		return defaultRankingDays
	case days > maxRankingDays:
		return maxRankingDays
	}
	return days
}
