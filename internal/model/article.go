package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UnknownSource is used when a news article carries no source name.
const UnknownSource = "Unknown Source"

// Article is a single crypto news item.
type Article struct {
	ID          uuid.UUID // Locally generated
	Title       string
	Description string // Optional
	URL         string
	ImageURL    string // Optional
	SourceName  string
	PublishedAt time.Time
}

// RelativeTime formats the article age as "45m", "7h, 26m" or "1d, 7h".
// Articles dated in the future report "0m".
func (a Article) RelativeTime(now time.Time) string {
	minutes := int(now.Sub(a.PublishedAt) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	switch {
	case minutes < 60:
		return fmt.Sprintf("%dm", minutes)
	case minutes < 24*60:
		return fmt.Sprintf("%dh, %dm", minutes/60, minutes%60)
	default:
		return fmt.Sprintf("%dd, %dh", minutes/(24*60), (minutes%(24*60))/60)
	}
}
