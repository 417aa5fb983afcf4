// Story Pull - Content and Authentication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Danny-Lenko/story-pull-backend

package content

import (
	"strings"

	"github.com/Danny-Lenko/story-pull-backend/internal/models"
)

// FilterBuilder turns list queries into store predicates.
type FilterBuilder struct{}

// Build translates q into a predicate scoped to callerID and reports
// which optional filters were engaged. The ownership condition is always
// set and is not reported.
func (FilterBuilder) Build(q *models.QueryFilter, callerID string) (models.ContentPredicate, models.FilterReport) {
	pred := models.ContentPredicate{AuthorID: callerID}
	report := models.FilterReport{
		Applied:   []string{},
		Available: models.AvailableFilters(),
	}

	if terms := strings.Fields(q.Search); len(terms) > 0 {
		pred.SearchTerms = terms
		report.Applied = append(report.Applied, models.FilterTextSearch)
	}

	if q.Type != "" {
		pred.Type = q.Type
		report.Applied = append(report.Applied, models.FilterType)
	}

	if len(q.Status) > 0 {
		pred.Statuses = append([]models.ContentStatus(nil), q.Status...)
		report.Applied = append(report.Applied, models.FilterStatus)
	}

	// An empty tag list means no tag filter, not "items with no tags".
	if len(q.Tags) > 0 {
		pred.Tags = append([]string(nil), q.Tags...)
		report.Applied = append(report.Applied, models.FilterTags)
	}

	if q.DateFrom != nil {
		from := q.DateFrom.UTC()
		pred.CreatedFrom = &from
		report.Applied = append(report.Applied, models.FilterDateFrom)
	}

	if q.DateTo != nil {
		to := q.DateTo.UTC()
		pred.CreatedTo = &to
		report.Applied = append(report.Applied, models.FilterDateTo)
	}

	return pred, report
}
