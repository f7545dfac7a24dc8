package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/theimaginaryfoundation/mood-journal/analysis"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusDraft, StatusPublished, StatusArchived:
		return st, nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
	}
}

type Entry struct {
	ID        string        `json:"id"`
	UserID    string        `json:"userId"`
	Content   string        `json:"content"`
	Status    Status        `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Analysis  EntryAnalysis `json:"analysis"`
}

// EntryAnalysis is the stored analysis of one entry. There is exactly one per entry; a
// successful re-analysis replaces it in place.
type EntryAnalysis struct {
	ID      string `json:"id"`
	EntryID string `json:"entryId"`
	UserID  string `json:"userId"`
	analysis.Analysis
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EntryVector is the embedding of an entry's content used for question answering.
type EntryVector struct {
	EntryID   string
	UserID    string
	Content   string
	CreatedAt time.Time
	Embedding []float32
}

// ScoredEntry is a similarity search hit; higher Score is more similar.
type ScoredEntry struct {
	EntryVector
	Score float64
}

// ListFilter narrows ListEntries. Zero values are unbounded; From and To are inclusive.
type ListFilter struct {
	Status Status
	From   time.Time
	To     time.Time
}

// EntryUpdate holds the fields a caller wants changed; nil fields are left alone.
type EntryUpdate struct {
	Content *string `json:"content,omitempty"`
	Status  *Status `json:"status,omitempty"`
}

type HistoryReport struct {
	Analyses []EntryAnalysis `json:"analyses"`
	Average  float64         `json:"average"`
}

type ArchiveMonth struct {
	Month   string  `json:"month"`
	Entries []Entry `json:"entries"`
}

type AnalyticsQuery struct {
	Start time.Time
	End   time.Time
	// Comparison is usually "none", "week" or "month". Anything but "" or "none" adds the
	// preceding window of the same length.
	Comparison string
}

type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type PeriodStats struct {
	Start            time.Time    `json:"start"`
	End              time.Time    `json:"end"`
	Entries          []Entry      `json:"entries"`
	Total            int          `json:"total"`
	AverageSentiment float64      `json:"averageSentiment"`
	MoodCounts       []LabelCount `json:"moodCounts"`
	SubjectCounts    []LabelCount `json:"subjectCounts"`
	MostCommonMood   string       `json:"mostCommonMood"`
}

type AnalyticsReport struct {
	CurrentPeriod  PeriodStats  `json:"currentPeriod"`
	PreviousPeriod *PeriodStats `json:"previousPeriod"`
}
