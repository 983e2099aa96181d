package invoicing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTemplate() InvoiceTemplate {
	return InvoiceTemplate{
		CustomerID:   uuid.New(),
		CustomerName: "Acme Corp",
		Currency:     "USD",
		Items: []TemplateItem{
			{Description: "Retainer", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(500), TaxRate: decimal.NewFromInt(10)},
		},
	}
}

func createTestRecurring(t *testing.T, frequency Frequency, start time.Time, end *time.Time) *RecurringInvoice {
	t.Helper()
	ri, err := NewRecurringInvoice(uuid.New(), testTemplate(), frequency, start, end)
	require.NoError(t, err)
	return ri
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFrequency_NextDate(t *testing.T) {
	tests := []struct {
		name      string
		frequency Frequency
		from      time.Time
		want      time.Time
	}{
		{"weekly adds seven days", FrequencyWeekly, date(2024, 1, 1), date(2024, 1, 8)},
		{"weekly crosses month boundary", FrequencyWeekly, date(2024, 1, 29), date(2024, 2, 5)},
		{"monthly mid-month", FrequencyMonthly, date(2024, 3, 15), date(2024, 4, 15)},
		{"monthly clamps to leap February", FrequencyMonthly, date(2024, 1, 31), date(2024, 2, 29)},
		{"monthly clamps to non-leap February", FrequencyMonthly, date(2023, 1, 31), date(2023, 2, 28)},
		{"monthly after clamp stays on clamped day", FrequencyMonthly, date(2024, 2, 29), date(2024, 3, 29)},
		{"monthly 31st to 30-day month", FrequencyMonthly, date(2024, 3, 31), date(2024, 4, 30)},
		{"quarterly", FrequencyQuarterly, date(2024, 1, 15), date(2024, 4, 15)},
		{"quarterly clamps", FrequencyQuarterly, date(2024, 11, 30), date(2025, 2, 28)},
		{"yearly", FrequencyYearly, date(2024, 5, 10), date(2025, 5, 10)},
		{"yearly clamps leap day", FrequencyYearly, date(2024, 2, 29), date(2025, 2, 28)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.frequency.NextDate(tt.from))
		})
	}
}

// TestFrequency_NextDate_MonthEndSequence walks three consecutive monthly
// generations from Jan 31 2024 and checks the clamp does not drift.
func TestFrequency_NextDate_MonthEndSequence(t *testing.T) {
	gen := date(2024, 1, 31)
	want := []time.Time{date(2024, 1, 31), date(2024, 2, 29), date(2024, 3, 29)}

	got := []time.Time{gen}
	for i := 0; i < 2; i++ {
		gen = FrequencyMonthly.NextDate(gen)
		got = append(got, gen)
	}

	assert.Equal(t, want, got)
}

func TestNewRecurringInvoice(t *testing.T) {
	t.Run("starts active with first generation due on start date", func(t *testing.T) {
		start := date(2024, 1, 31)
		ri := createTestRecurring(t, FrequencyMonthly, start, nil)

		assert.Equal(t, RecurringStatusActive, ri.Status)
		assert.Equal(t, start, ri.NextGenerationDate)
	})

	t.Run("rejects unknown frequency", func(t *testing.T) {
		_, err := NewRecurringInvoice(uuid.New(), testTemplate(), Frequency("fortnightly"), date(2024, 1, 1), nil)
		assert.Error(t, err)
	})

	t.Run("rejects end date before start date", func(t *testing.T) {
		end := date(2023, 12, 31)
		_, err := NewRecurringInvoice(uuid.New(), testTemplate(), FrequencyMonthly, date(2024, 1, 1), &end)
		assert.Error(t, err)
	})

	t.Run("rejects invalid template", func(t *testing.T) {
		tpl := testTemplate()
		tpl.Items[0].Quantity = decimal.NewFromInt(-1)
		_, err := NewRecurringInvoice(uuid.New(), tpl, FrequencyMonthly, date(2024, 1, 1), nil)
		assert.Error(t, err)

		tpl = testTemplate()
		tpl.Items = nil
		_, err = NewRecurringInvoice(uuid.New(), tpl, FrequencyMonthly, date(2024, 1, 1), nil)
		assert.Error(t, err)
	})
}

func TestRecurringInvoice_IsDue(t *testing.T) {
	ri := createTestRecurring(t, FrequencyMonthly, date(2024, 1, 15), nil)

	assert.False(t, ri.IsDue(date(2024, 1, 14)))
	assert.True(t, ri.IsDue(date(2024, 1, 15)))
	assert.True(t, ri.IsDue(date(2024, 2, 1)))

	ri.Pause()
	assert.False(t, ri.IsDue(date(2024, 2, 1)))
}

func TestRecurringInvoice_Advance(t *testing.T) {
	t.Run("moves to next period", func(t *testing.T) {
		ri := createTestRecurring(t, FrequencyWeekly, date(2024, 1, 1), nil)
		ri.Advance()
		assert.Equal(t, date(2024, 1, 8), ri.NextGenerationDate)
		assert.Equal(t, RecurringStatusActive, ri.Status)
	})

	t.Run("finishes when the advanced date passes the end date", func(t *testing.T) {
		end := date(2024, 1, 10)
		ri := createTestRecurring(t, FrequencyWeekly, date(2024, 1, 8), &end)

		ri.Advance()

		assert.Equal(t, date(2024, 1, 15), ri.NextGenerationDate)
		assert.Equal(t, RecurringStatusFinished, ri.Status)
		assert.NotNil(t, ri.FinishedAt)
	})
}

func TestRecurringInvoice_PauseResume(t *testing.T) {
	ri := createTestRecurring(t, FrequencyMonthly, date(2024, 1, 1), nil)

	ri.Pause()
	assert.Equal(t, RecurringStatusPaused, ri.Status)
	assert.NotNil(t, ri.PausedAt)

	// Pause again is a no-op
	ri.Pause()
	assert.Equal(t, RecurringStatusPaused, ri.Status)

	ri.Resume()
	assert.Equal(t, RecurringStatusActive, ri.Status)
	assert.Nil(t, ri.PausedAt)

	// Resume on an active record is a no-op
	ri.Resume()
	assert.Equal(t, RecurringStatusActive, ri.Status)
}

func TestRecurringInvoice_Cancel(t *testing.T) {
	t.Run("cancels from active and paused", func(t *testing.T) {
		active := createTestRecurring(t, FrequencyMonthly, date(2024, 1, 1), nil)
		active.Cancel()
		assert.Equal(t, RecurringStatusFinished, active.Status)

		paused := createTestRecurring(t, FrequencyMonthly, date(2024, 1, 1), nil)
		paused.Pause()
		paused.Cancel()
		assert.Equal(t, RecurringStatusFinished, paused.Status)
	})

	t.Run("resume after finish is a no-op", func(t *testing.T) {
		ri := createTestRecurring(t, FrequencyMonthly, date(2024, 1, 1), nil)
		ri.Cancel()
		ri.Resume()
		assert.Equal(t, RecurringStatusFinished, ri.Status)
	})
}

func TestInvoiceTemplate_LineItems(t *testing.T) {
	tpl := testTemplate()
	items, err := tpl.LineItems()
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "550.00", items[0].LineTotal.StringFixed(2))
}
