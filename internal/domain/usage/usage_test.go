package usage

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/ragchat/internal/domain"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in      string
		want    Period
		wantErr bool
	}{
		{"", PeriodDay, false},
		{"day", PeriodDay, false},
		{" Month ", PeriodMonth, false},
		{"total", "", true},
	}
	for _, tc := range tests {
		got, err := ParsePeriod(tc.in)
		if tc.wantErr {
			if !errors.Is(err, domain.ErrValidation) {
				t.Errorf("ParsePeriod(%q) err = %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParsePeriod(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestPeriod_Bounds(t *testing.T) {
	at := time.Date(2026, 12, 31, 23, 30, 0, 0, time.UTC)

	start, end := PeriodDay.Bounds(at)
	if !start.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("day bounds = %v..%v", start, end)
	}

	start, end = PeriodMonth.Bounds(at)
	if !start.Equal(time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)) || !end.Equal(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("month bounds = %v..%v", start, end)
	}
}

func TestNewReport(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	r := NewReport(PeriodMonth, start, end, 384200, 1000000)
	if r.Period() != PeriodMonth || !r.PeriodStart().Equal(start) || !r.PeriodEnd().Equal(end) {
		t.Errorf("window = %q %v %v", r.Period(), r.PeriodStart(), r.PeriodEnd())
	}
	if r.TokensUsed() != 384200 || r.TokensLimit() != 1000000 || r.TokensRemaining() != 615800 {
		t.Errorf("tokens = %d/%d/%d", r.TokensUsed(), r.TokensLimit(), r.TokensRemaining())
	}
	if r.Exhausted() {
		t.Error("should not be exhausted")
	}

	spent := NewReport(PeriodDay, start, end, 120, 100)
	if !spent.Exhausted() || spent.TokensRemaining() != 0 {
		t.Errorf("overspent report = %+v", spent)
	}

	unlimited := NewReport(PeriodDay, start, end, 50, 0)
	if unlimited.Exhausted() || unlimited.TokensRemaining() != -1 {
		t.Errorf("unlimited report = %+v", unlimited)
	}
}
