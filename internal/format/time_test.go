package format

import (
	"testing"
	"time"
)

func TestFiletimeToTime(t *testing.T) {
	// The FILETIME epoch itself maps to the Unix epoch.
	if got := FiletimeToTime(filetimeOffset); !got.Equal(time.Unix(0, 0)) {
		t.Fatalf("epoch: got %v", got)
	}
	// One second past the Unix epoch is 10^7 ticks.
	want := time.Date(1970, 1, 1, 0, 0, 1, 0, time.UTC)
	if got := FiletimeToTime(filetimeOffset + 10_000_000); !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFiletimeToTimePreEpoch(t *testing.T) {
	// Values before the Unix epoch clamp rather than going negative.
	if got := FiletimeToTime(0); !got.Equal(time.Unix(0, 0)) {
		t.Fatalf("got %v", got)
	}
}

func TestFiletimeRoundTrip(t *testing.T) {
	// FILETIME resolution is 100ns, so a tick-aligned time survives the trip.
	want := time.Date(2024, 5, 14, 9, 30, 0, 123456700, time.UTC)
	got := FiletimeToTime(TimeToFiletime(want))
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFiletimeSubSecond(t *testing.T) {
	base := TimeToFiletime(time.Date(2023, 11, 2, 12, 0, 0, 0, time.UTC))
	got := FiletimeToTime(base + 5) // 500ns later
	if got.Nanosecond() != 500 {
		t.Fatalf("nanosecond = %d", got.Nanosecond())
	}
}
