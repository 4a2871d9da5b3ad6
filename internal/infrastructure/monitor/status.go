package monitor

import "time"

type Status struct {
	Store          bool      `json:"store"`
	Journal        bool      `json:"journal"`
	JournalBacklog int       `json:"journal_backlog"`
	LastCheck      time.Time `json:"last_check"`
}
