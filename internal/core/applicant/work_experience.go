package applicant

import (
	"fmt"
	"strings"
	"time"
)

// WorkExperience は職歴 1 件を表す値オブジェクトです。
type WorkExperience struct {
	ID            int64
	CompanyName   string
	Position      string
	StartDate     *time.Time
	EndDate       *time.Time
	StillEmployed bool
	Description   string
	SortOrder     int
}

func (w WorkExperience) clone() WorkExperience {
	c := w
	c.StartDate = cloneTime(w.StartDate)
	c.EndDate = cloneTime(w.EndDate)
	return c
}

// validateWorkExperiences は職歴一覧を検証し、正規化した値を書き戻します。
func validateWorkExperiences(entries []WorkExperience, now time.Time) *ValidationError {
	verr := &ValidationError{}
	today := truncateDay(now)
	maxEnd := today.AddDate(1, 0, 0)

	for i := range entries {
		w := &entries[i]
		prefix := fmt.Sprintf("work_experiences[%d].", i)

		w.CompanyName = strings.TrimSpace(w.CompanyName)
		w.Position = strings.TrimSpace(w.Position)
		w.Description = strings.TrimSpace(w.Description)

		if w.CompanyName == "" {
			verr.Add(prefix+"company_name", "is required")
		}
		if w.SortOrder < 0 {
			verr.Add(prefix+"sort_order", "must not be negative")
		}
		if w.StartDate != nil && truncateDay(*w.StartDate).After(today) {
			verr.Add(prefix+"start_date", "must not be in the future")
		}
		if w.StillEmployed {
			if w.EndDate != nil {
				verr.Add(prefix+"end_date", "must be empty while still employed")
			}
			continue
		}
		if w.EndDate == nil {
			continue
		}
		if w.StartDate != nil && w.EndDate.Before(*w.StartDate) {
			verr.Add(prefix+"end_date", "must not be before start date")
		}
		if truncateDay(*w.EndDate).After(maxEnd) {
			verr.Add(prefix+"end_date", "must not be more than one year in the future")
		}
	}

	return verr
}
