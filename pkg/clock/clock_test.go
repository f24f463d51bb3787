package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodayUsesBogotaNotUTC(t *testing.T) {
	// 2024-03-02 03:30 UTC is still 2024-03-01 22:30 in Bogota.
	instant := time.Date(2024, 3, 2, 3, 30, 0, 0, time.UTC)
	cal := MustNew("America/Bogota").WithNow(func() time.Time { return instant })

	assert.Equal(t, "2024-03-01", FormatDate(cal.Today()))
	assert.Equal(t, 22, cal.Now().Hour())
}

func TestTodayIgnoresHostZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	// 08:00 in Tokyo on the 10th is 18:00 on the 9th in Bogota.
	instant := time.Date(2024, 5, 10, 8, 0, 0, 0, tokyo)
	cal := MustNew("").WithNow(func() time.Time { return instant })

	assert.Equal(t, "2024-05-09", FormatDate(cal.Today()))
}

func TestParseDate(t *testing.T) {
	instant := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	cal := MustNew("America/Bogota").WithNow(func() time.Time { return instant })

	d, err := cal.ParseDate("")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", FormatDate(d))

	d, err = cal.ParseDate("2023-12-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), d)

	_, err = cal.ParseDate("31/12/2023")
	assert.Error(t, err)
}

func TestUnknownZoneFails(t *testing.T) {
	_, err := New("Mars/Olympus")
	assert.Error(t, err)
}
