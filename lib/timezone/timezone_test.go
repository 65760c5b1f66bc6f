package timezone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStamp(t *testing.T) {
	err := Use("UTC")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		Location = time.FixedZone("MSK", 3*60*60)
	}()

	cases := []struct {
		at       time.Time
		expected string
	}{
		{
			at:       time.Date(2024, time.August, 26, 9, 5, 7, 0, time.UTC),
			expected: "2024-08-26 09:05:07",
		},
		{
			at:       time.Date(2024, time.August, 26, 1, 0, 0, 0, time.FixedZone("X", 3*60*60)),
			expected: "2024-08-25 22:00:00",
		},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, Stamp(test.at))
	}
}

func TestUseUnknownZone(t *testing.T) {
	before := Location
	require.Error(t, Use("Nowhere/Atlantis"))
	require.Equal(t, before, Location)
	require.NoError(t, Use(""))
	require.Equal(t, before, Location)
}
