package view

import (
	"strings"
	"time"

	"dailyjournal/internal/entry/model"
)

// DefaultAvatar is shown when the identity has no photo or it failed to load.
const DefaultAvatar = "data:image/svg+xml,%3Csvg xmlns='http://www.w3.org/2000/svg' width='100' height='100' viewBox='0 0 100 100'%3E%3Ccircle cx='50' cy='50' r='50' fill='%23f5f5f5' stroke='%23e0e0e0'/%3E%3Ccircle cx='50' cy='35' r='12' fill='%23666'/%3E%3Cellipse cx='50' cy='70' rx='20' ry='12' fill='%23666'/%3E%3C/svg%3E"

const listDateLayout = "Jan 2, 2006"

// ProfilePhoto normalizes a provider photo URL: https only, and Google
// photos get an explicit size.
func ProfilePhoto(photoURL string, loadFailed bool) string {
	if loadFailed || photoURL == "" {
		return DefaultAvatar
	}
	if strings.HasPrefix(photoURL, "http:") {
		photoURL = "https:" + strings.TrimPrefix(photoURL, "http:")
	}
	if strings.Contains(photoURL, "googleusercontent.com") && !strings.Contains(photoURL, "=s") {
		photoURL += "=s200-c"
	}
	return photoURL
}

// DisplayLabel is the name shown in the header.
func DisplayLabel(identity *model.Identity) string {
	switch {
	case identity == nil:
		return "User"
	case identity.DisplayName != "":
		return identity.DisplayName
	case identity.Email != "":
		return identity.Email
	}
	return "User"
}

// FormatDate renders an entry date for the list, e.g. "Mar 1, 2024".
func FormatDate(date string) string {
	d, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format(listDateLayout)
}

// DraftWordCount is the live count shown under the composer.
func DraftWordCount(content string) int {
	return model.CountWords(strings.TrimSpace(content))
}
