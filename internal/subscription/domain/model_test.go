package domain

import (
	"testing"
	"time"
)

func TestStatusLive(t *testing.T) {
	for _, s := range []Status{StatusTrial, StatusActive} {
		if !s.Live() {
			t.Fatalf("%s should be live", s)
		}
	}
	for _, s := range []Status{StatusPending, StatusCancelled, Status("unknown")} {
		if s.Live() {
			t.Fatalf("%s should not be live", s)
		}
	}
}

func TestSubscriptionValidAt(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	later := now.AddDate(0, 1, 0)

	cases := []struct {
		name string
		sub  Subscription
		at   time.Time
		want bool
	}{
		{
			name: "trial before end",
			sub:  Subscription{Status: StatusTrial, TrialEndsAt: &later},
			at:   now,
			want: true,
		},
		{
			name: "trial at end",
			sub:  Subscription{Status: StatusTrial, TrialEndsAt: &later},
			at:   later,
			want: false,
		},
		{
			name: "trial without end date",
			sub:  Subscription{Status: StatusTrial},
			at:   now,
			want: false,
		},
		{
			name: "active before end",
			sub:  Subscription{Status: StatusActive, EndsAt: &later},
			at:   now,
			want: true,
		},
		{
			name: "active past end",
			sub:  Subscription{Status: StatusActive, EndsAt: &now},
			at:   later,
			want: false,
		},
		{
			name: "active lifetime",
			sub:  Subscription{Status: StatusActive},
			at:   later,
			want: true,
		},
		{
			name: "pending never valid",
			sub:  Subscription{Status: StatusPending, EndsAt: &later},
			at:   now,
			want: false,
		},
		{
			name: "cancelled never valid",
			sub:  Subscription{Status: StatusCancelled, EndsAt: &later},
			at:   now,
			want: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sub.ValidAt(tc.at); got != tc.want {
				t.Fatalf("ValidAt = %v, want %v", got, tc.want)
			}
		})
	}
}
