package service

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/substitution"
)

var weekdays = map[string]time.Weekday{
	"SUNDAY":    time.Sunday,
	"MONDAY":    time.Monday,
	"TUESDAY":   time.Tuesday,
	"WEDNESDAY": time.Wednesday,
	"THURSDAY":  time.Thursday,
	"FRIDAY":    time.Friday,
	"SATURDAY":  time.Saturday,
}

// registerDomainValidators installs the custom tags used by request payloads.
// Registering twice on the same validator is harmless.
func registerDomainValidators(v *validator.Validate) {
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := substitution.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.DateOnly, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("weekday", func(fl validator.FieldLevel) bool {
		_, ok := weekdays[strings.ToUpper(fl.Field().String())]
		return ok
	})
	_ = v.RegisterValidation("leave_status", func(fl validator.FieldLevel) bool {
		switch models.LeaveStatus(fl.Field().String()) {
		case models.LeaveStatusApproved, models.LeaveStatusDenied:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("audience", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementAudience(strings.ToUpper(fl.Field().String())) {
		case models.AnnouncementAudienceAll, models.AnnouncementAudienceFaculty,
			models.AnnouncementAudienceStudents, models.AnnouncementAudienceDepartment:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		switch models.AnnouncementPriority(strings.ToUpper(fl.Field().String())) {
		case models.AnnouncementPriorityLow, models.AnnouncementPriorityNormal, models.AnnouncementPriorityHigh:
			return true
		}
		return false
	})
}

// dayName returns the upper-case weekday name of a YYYY-MM-DD date.
func dayName(date string) (string, error) {
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(d.Weekday().String()), nil
}
