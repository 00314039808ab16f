package view

import "dailyjournal/internal/entry/model"

// Item is an entry as listed, with its display date.
type Item struct {
	model.Entry
	DateLabel string `json:"date_label"`
}

type Profile struct {
	Label string `json:"label"`
	Email string `json:"email,omitempty"`
	Photo string `json:"photo"`
}

// Page is the rendered journal screen.
type Page struct {
	Entries    []Item     `json:"entries"`
	Stats      Stats      `json:"stats"`
	Greeting   string     `json:"greeting"`
	EmptyState EmptyState `json:"empty_state"`
	Search     string     `json:"search"`
	Profile    Profile    `json:"profile"`
}

func Render(v View, identity *model.Identity, photoFailed bool) Page {
	items := make([]Item, len(v.Entries))
	for i, e := range v.Entries {
		items[i] = Item{Entry: e, DateLabel: FormatDate(e.Date)}
	}
	return Page{
		Entries:    items,
		Stats:      v.Stats,
		Greeting:   v.Greeting,
		EmptyState: v.EmptyState,
		Search:     v.Search,
		Profile:    ProfileOf(identity, photoFailed),
	}
}

func ProfileOf(identity *model.Identity, photoFailed bool) Profile {
	p := Profile{Label: DisplayLabel(identity), Photo: DefaultAvatar}
	if identity != nil {
		p.Email = identity.Email
		p.Photo = ProfilePhoto(identity.PhotoURL, photoFailed)
	}
	return p
}
