package db

import "errors"

// Domain-level database error sentinels.
var (
	// User errors
	ErrUserNotFound = errors.New("user not found")

	// Project errors
	ErrProjectNotFound = errors.New("project not found")

	// Keyword errors
	ErrKeywordNotFound  = errors.New("keyword not found")
	ErrDuplicateKeyword = errors.New("keyword is already tracked for this project")

	// Competitor errors
	ErrCompetitorNotFound  = errors.New("competitor not found")
	ErrDuplicateCompetitor = errors.New("competitor already exists for this project")

	// Search Console errors
	ErrGSCTokenNotFound = errors.New("search console is not connected for this project")

	// Outreach errors
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrTargetNotFound   = errors.New("outreach target not found")
	ErrTemplateNotFound = errors.New("template not found")
)
