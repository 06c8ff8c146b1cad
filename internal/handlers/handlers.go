package handlers

import (
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"seodesk/internal/models"
)

// pageUser returns the signed-in user for page routes.
func pageUser(c fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals("user").(*models.User)
	return user, ok && user != nil
}

// latestPositions maps each keyword to its most recent rank position.
// Rankings must be ordered newest first.
func latestPositions(rankings []models.Ranking) map[uuid.UUID]int {
	positions := make(map[uuid.UUID]int, len(rankings))
	for _, r := range rankings {
		if _, seen := positions[r.KeywordID]; seen {
			continue
		}
		positions[r.KeywordID] = r.RankPosition
	}
	return positions
}

// positionClass returns the badge colour for a rank position.
func positionClass(pos int) string {
	switch {
	case pos <= 0:
		return "bg-gray-100 text-gray-600"
	case pos <= 3:
		return "bg-green-100 text-green-800"
	case pos <= 10:
		return "bg-blue-100 text-blue-800"
	case pos <= 30:
		return "bg-yellow-100 text-yellow-800"
	default:
		return "bg-red-100 text-red-800"
	}
}

// gscFlash turns the ?gsc query flag into a message for the project page.
func gscFlash(flag string) (message string, isError bool) {
	switch flag {
	case "connected":
		return "Search Console connected. The first sync runs with the next scheduled job.", false
	case "denied":
		return "Search Console access was denied.", true
	case "no_sites":
		return "No Search Console properties were found for this Google account.", true
	case "error":
		return "Connecting Search Console failed. Please try again.", true
	default:
		return "", false
	}
}
