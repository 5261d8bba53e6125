package shared

import (
	"strings"

	"github.com/gosimple/slug"
)

// MaxSlugLength bounds slugs for stores and catalog entities
const MaxSlugLength = 200

// NormalizeSlug turns raw into a URL slug, deriving it from fallback when raw is blank.
func NormalizeSlug(raw, fallback string) (string, error) {
	source := strings.TrimSpace(raw)
	if source == "" {
		source = fallback
	}
	s := slug.Make(source)
	if s == "" {
		return "", NewDomainError("INVALID_SLUG", "Slug must contain letters or digits")
	}
	if len(s) > MaxSlugLength {
		return "", NewDomainError("INVALID_SLUG", "Slug cannot exceed 200 characters")
	}
	return s, nil
}
