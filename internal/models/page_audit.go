package models

import (
	"time"

	"github.com/google/uuid"
)

// PageAudit is the stored result of an on-page SEO analysis.
type PageAudit struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	ProjectID          *uuid.UUID `json:"project_id"`
	URL                string     `json:"url"`
	Title              string     `json:"title"`
	MetaDescription    string     `json:"meta_description"`
	H1                 []string   `json:"h1"`
	H2                 []string   `json:"h2"`
	CanonicalURL       string     `json:"canonical_url"`
	WordCount          int        `json:"word_count"`
	ParagraphCount     int        `json:"paragraph_count"`
	ImagesTotal        int        `json:"images_total"`
	ImagesWithoutAlt   int        `json:"images_without_alt"`
	InternalLinksCount int        `json:"internal_links_count"`
	ExternalLinksCount int        `json:"external_links_count"`
	HasMetaViewport    bool       `json:"has_meta_viewport"`
	MetaRobots         string     `json:"meta_robots"`
	HasOGTags          bool       `json:"has_og_tags"`
	HasTwitterTags     bool       `json:"has_twitter_tags"`
	SchemaTypes        []string   `json:"schema_types"`
	Language           string     `json:"language"`
	TargetKeyword      *string    `json:"target_keyword"`
	KeywordInTitle     bool       `json:"keyword_in_title"`
	KeywordInH1        bool       `json:"keyword_in_h1"`
	KeywordInMeta      bool       `json:"keyword_in_meta"`
	KeywordInURL       bool       `json:"keyword_in_url"`
	KeywordDensity     float64    `json:"keyword_density"`
	AnalyzedAt         time.Time  `json:"analyzed_at"`
}
