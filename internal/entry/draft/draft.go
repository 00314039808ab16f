// Package draft holds the compose form of one session.
package draft

import (
	"strings"
	"sync"

	"dailyjournal/internal/entry/model"
	"dailyjournal/internal/entry/service"
	"dailyjournal/internal/entry/view"
	"dailyjournal/pkg/apperr"
)

// State is a copy of the draft as shown to the user.
type State struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Date      string `json:"date"`
	WordCount int    `json:"word_count"`
	Composing bool   `json:"composing"`
	Saving    bool   `json:"saving"`
	Error     string `json:"error,omitempty"`
}

type Draft struct {
	mu    sync.Mutex
	state State
}

// New returns a closed, empty draft dated today.
func New(today string) *Draft {
	return &Draft{state: State{Date: today}}
}

// Open enters compose mode. The fields of an earlier draft are kept.
func (d *Draft) Open() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Composing = true
}

// Cancel leaves compose mode without discarding the fields.
func (d *Draft) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Saving {
		return
	}
	d.state.Composing = false
	d.state.Error = ""
}

// Edit replaces the draft fields. Edits are refused while a save is in
// flight so that a successful save never clears unsaved text.
func (d *Draft) Edit(title, content, date string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Saving {
		return apperr.New(apperr.SaveInFlight)
	}
	d.state.Title = title
	d.state.Content = content
	if date != "" {
		d.state.Date = date
	}
	d.state.WordCount = view.DraftWordCount(content)
	d.state.Composing = true
	return nil
}

// Begin marks the draft as saving and returns what to submit. A rejected
// draft is left untouched.
func (d *Draft) Begin(identity *model.Identity, today string) (service.SaveInput, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.state.Saving:
		return service.SaveInput{}, apperr.New(apperr.SaveInFlight)
	case identity == nil || identity.ID == "":
		return service.SaveInput{}, apperr.New(apperr.NoIdentity)
	case strings.TrimSpace(d.state.Content) == "":
		return service.SaveInput{}, apperr.New(apperr.EmptyContent)
	}

	date := d.state.Date
	if date == "" {
		date = today
	}
	d.state.Saving = true
	d.state.Error = ""
	return service.SaveInput{Title: d.state.Title, Content: d.state.Content, Date: date}, nil
}

// Finish ends the save started by Begin. On success the text is cleared and
// compose mode closed; the date is kept. On failure the draft is retained
// with the failure message.
func (d *Draft) Finish(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state.Saving = false
	if err != nil {
		d.state.Error = service.SaveErrorMessage(err)
		return
	}
	d.state.Title = ""
	d.state.Content = ""
	d.state.WordCount = 0
	d.state.Composing = false
	d.state.Error = ""
}

func (d *Draft) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
