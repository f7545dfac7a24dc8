package journal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

const archiveMonthLayout = "January 2006"

// History returns the user's analyses in ascending creation order with their mean
// sentiment score. The mean of no analyses is 0.
func (s *Service) History(ctx context.Context, userID string) (HistoryReport, error) {
	entries, err := s.ListEntries(ctx, userID, ListFilter{})
	if err != nil {
		return HistoryReport{}, err
	}
	analyses := make([]EntryAnalysis, 0, len(entries))
	for _, e := range entries {
		analyses = append(analyses, e.Analysis)
	}
	sort.SliceStable(analyses, func(i, j int) bool {
		return analyses[i].CreatedAt.Before(analyses[j].CreatedAt)
	})
	return HistoryReport{Analyses: analyses, Average: averageSentiment(analyses)}, nil
}

// Archive groups the user's entries by calendar month of creation, oldest month first.
func (s *Service) Archive(ctx context.Context, userID string) ([]ArchiveMonth, error) {
	entries, err := s.ListEntries(ctx, userID, ListFilter{})
	if err != nil {
		return nil, err
	}
	out := []ArchiveMonth{}
	for _, e := range entries {
		label := e.CreatedAt.Format(archiveMonthLayout)
		if n := len(out); n > 0 && out[n-1].Month == label {
			out[n-1].Entries = append(out[n-1].Entries, e)
			continue
		}
		out = append(out, ArchiveMonth{Month: label, Entries: []Entry{e}})
	}
	return out, nil
}

// Analytics summarizes entries created in [q.Start, q.End] and, when a comparison is
// requested, the window of equal length immediately before it.
func (s *Service) Analytics(ctx context.Context, userID string, q AnalyticsQuery) (AnalyticsReport, error) {
	if q.Start.IsZero() || q.End.IsZero() {
		return AnalyticsReport{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidInput)
	}
	if q.End.Before(q.Start) {
		return AnalyticsReport{}, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	current, err := s.periodStats(ctx, userID, q.Start, q.End)
	if err != nil {
		return AnalyticsReport{}, err
	}
	report := AnalyticsReport{CurrentPeriod: current}
	if !wantsComparison(q.Comparison) {
		return report, nil
	}
	d := q.End.Sub(q.Start)
	prev, err := s.periodStats(ctx, userID, q.Start.Add(-d), q.End.Add(-d))
	if err != nil {
		return AnalyticsReport{}, err
	}
	report.PreviousPeriod = &prev
	return report, nil
}

// wantsComparison reports whether the previous window is requested. Any value other
// than "" or "none" asks for it; the window length always follows the query range.
func wantsComparison(c string) bool {
	switch strings.ToLower(strings.TrimSpace(c)) {
	case "", "none":
		return false
	default:
		return true
	}
}

func (s *Service) periodStats(ctx context.Context, userID string, start, end time.Time) (PeriodStats, error) {
	entries, err := s.ListEntries(ctx, userID, ListFilter{From: start, To: end})
	if err != nil {
		return PeriodStats{}, err
	}
	// newest first
	sorted := make([]Entry, len(entries))
	for i, e := range entries {
		sorted[len(entries)-1-i] = e
	}

	// labels are counted oldest first so the earliest spelling wins
	analyses := make([]EntryAnalysis, 0, len(entries))
	moods := make([]string, 0, len(entries))
	subjects := make([]string, 0, len(entries))
	for _, e := range entries {
		analyses = append(analyses, e.Analysis)
		moods = append(moods, e.Analysis.Mood)
		subjects = append(subjects, e.Analysis.Subject)
	}

	stats := PeriodStats{
		Start:            start,
		End:              end,
		Entries:          sorted,
		Total:            len(sorted),
		AverageSentiment: averageSentiment(analyses),
		MoodCounts:       countLabels(moods),
		SubjectCounts:    countLabels(subjects),
	}
	if len(stats.MoodCounts) > 0 {
		stats.MostCommonMood = stats.MoodCounts[0].Label
	}
	return stats, nil
}

func averageSentiment(analyses []EntryAnalysis) float64 {
	if len(analyses) == 0 {
		return 0
	}
	var sum float64
	for _, a := range analyses {
		sum += a.SentimentScore
	}
	return sum / float64(len(analyses))
}

// countLabels groups labels case-insensitively, keeping the first spelling seen. Blank
// labels are skipped. Output is by count descending, then label ascending.
func countLabels(labels []string) []LabelCount {
	idx := make(map[string]int, len(labels))
	out := make([]LabelCount, 0, len(labels))
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		key := strings.ToLower(l)
		if i, ok := idx[key]; ok {
			out[i].Count++
			continue
		}
		idx[key] = len(out)
		out = append(out, LabelCount{Label: l, Count: 1})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return strings.ToLower(out[i].Label) < strings.ToLower(out[j].Label)
	})
	return out
}
