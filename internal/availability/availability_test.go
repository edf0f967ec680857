package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"session-scheduler/internal/models"
	"session-scheduler/pkg/response"
)

func validSchedule() models.AvailabilitySchedule {
	return models.AvailabilitySchedule{
		MentorID:               "mentor-1",
		Timezone:               "Europe/Berlin",
		DefaultSessionMinutes:  60,
		BufferMinutes:          15,
		MinAdvanceBookingHours: 24,
		MaxAdvanceBookingDays:  30,
		BookingMode:            models.BookingInstant,
		RateCents:              5000,
		Currency:               "EUR",
		Patterns: []models.WeeklyPattern{
			{DayOfWeek: 1, Enabled: true, Blocks: []models.TimeBlock{
				{Start: models.NewClock(9, 0), End: models.NewClock(12, 0), Kind: models.BlockAvailable},
				{Start: models.NewClock(12, 0), End: models.NewClock(13, 0), Kind: models.BlockBreak},
				{Start: models.NewClock(13, 0), End: models.NewClock(17, 0), Kind: models.BlockAvailable},
			}},
		},
	}
}

func TestValidateSchedule(t *testing.T) {
	require.NoError(t, ValidateSchedule(validSchedule()))

	tests := []struct {
		name   string
		mutate func(s *models.AvailabilitySchedule)
	}{
		{"bad timezone", func(s *models.AvailabilitySchedule) { s.Timezone = "Mars/Olympus" }},
		{"empty timezone", func(s *models.AvailabilitySchedule) { s.Timezone = "" }},
		{"zero duration", func(s *models.AvailabilitySchedule) { s.DefaultSessionMinutes = 0 }},
		{"zero buffer", func(s *models.AvailabilitySchedule) { s.BufferMinutes = 0 }},
		{"negative advance", func(s *models.AvailabilitySchedule) { s.MinAdvanceBookingHours = -1 }},
		{"zero horizon", func(s *models.AvailabilitySchedule) { s.MaxAdvanceBookingDays = 0 }},
		{"unknown mode", func(s *models.AvailabilitySchedule) { s.BookingMode = "whenever" }},
		{"duplicate day", func(s *models.AvailabilitySchedule) {
			s.Patterns = append(s.Patterns, models.WeeklyPattern{DayOfWeek: 1})
		}},
		{"day out of range", func(s *models.AvailabilitySchedule) {
			s.Patterns = append(s.Patterns, models.WeeklyPattern{DayOfWeek: 7})
		}},
		{"overlapping blocks", func(s *models.AvailabilitySchedule) {
			s.Patterns[0].Blocks = append(s.Patterns[0].Blocks, models.TimeBlock{
				Start: models.NewClock(16, 0), End: models.NewClock(18, 0), Kind: models.BlockAvailable,
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSchedule()
			tt.mutate(&s)
			err := ValidateSchedule(s)
			assert.ErrorIs(t, err, response.ErrInvalidInput)
		})
	}
}

func TestValidateBlocks_TouchingBlocksAllowed(t *testing.T) {
	blocks := []models.TimeBlock{
		{Start: models.NewClock(13, 0), End: models.EndOfDay, Kind: models.BlockAvailable},
		{Start: models.NewClock(9, 0), End: models.NewClock(13, 0), Kind: models.BlockBlocked},
	}
	assert.NoError(t, ValidateBlocks(blocks))
}

func TestValidateException(t *testing.T) {
	start, _ := models.ParseDate("2025-03-10")
	end, _ := models.ParseDate("2025-03-12")

	full := models.AvailabilityException{StartDate: start, EndDate: end, Kind: models.BlockBlocked, IsFullDay: true}
	assert.NoError(t, ValidateException(full))

	inverted := full
	inverted.StartDate, inverted.EndDate = end, start
	assert.ErrorIs(t, ValidateException(inverted), response.ErrInvalidInput)

	partial := models.AvailabilityException{StartDate: start, EndDate: start, Kind: models.BlockAvailable}
	assert.ErrorIs(t, ValidateException(partial), response.ErrInvalidInput)

	partial.Blocks = []models.TimeBlock{{Start: models.NewClock(10, 0), End: models.NewClock(11, 0), Kind: models.BlockAvailable}}
	assert.NoError(t, ValidateException(partial))
}

func TestValidateRule(t *testing.T) {
	mult := 1.5
	from, to := models.NewClock(18, 0), models.NewClock(9, 0)

	ok := models.AvailabilityRule{Action: models.RuleAction{PriceMultiplier: &mult}}
	assert.NoError(t, ValidateRule(ok))

	empty := models.AvailabilityRule{}
	assert.ErrorIs(t, ValidateRule(empty), response.ErrInvalidInput)

	inverted := ok
	inverted.Condition.TimeFrom, inverted.Condition.TimeTo = &from, &to
	assert.ErrorIs(t, ValidateRule(inverted), response.ErrInvalidInput)

	badDay := ok
	badDay.Condition.DaysOfWeek = []int{8}
	assert.ErrorIs(t, ValidateRule(badDay), response.ErrInvalidInput)
}

func TestDefaultPriority(t *testing.T) {
	assert.Equal(t, models.GlobalRulePriority, DefaultPriority(models.RuleCondition{}))
	assert.Equal(t, models.DefaultRulePriority, DefaultPriority(models.RuleCondition{DaysOfWeek: []int{6}}))
	assert.Less(t, DefaultPriority(models.RuleCondition{}), DefaultPriority(models.RuleCondition{DaysOfWeek: []int{0}}))
}
