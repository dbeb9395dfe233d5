package alertdb

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *AlertDB {
	t.Helper()
	db, err := NewAlertDB(logs.NewTestingLog(t), filepath.Join(t.TempDir(), "alerts.sqlite"))
	require.NoError(t, err)
	return db
}

func TestAlertLifecycle(t *testing.T) {
	db := setup(t)
	defer db.Close()

	base := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	detail := &AlertDetail{
		Resolution: [2]int{640, 480},
		Regions:    []RegionJSON{{X: 10, Y: 20, Width: 50, Height: 40, Area: 1800}},
		TotalArea:  1800,
	}

	alert, err := db.Add(base, 7, detail)
	require.NoError(t, err)
	require.NotZero(t, alert.ID)

	// Freshly added alerts are undelivered
	pending, err := db.Undelivered()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, int64(7), pending[0].ImageID)
	require.Equal(t, 1800, pending[0].Detail.Data.TotalArea)

	// A dispatch failure is recorded but leaves the alert pending
	require.NoError(t, db.MarkFailed(alert.ID, "connection refused"))
	pending, err = db.Undelivered()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "connection refused", pending[0].DeliveryError)

	// Delivery clears it
	require.NoError(t, db.MarkDelivered(alert.ID))
	pending, err = db.Undelivered()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestUndeliveredOrdering(t *testing.T) {
	db := setup(t)
	defer db.Close()

	base := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	for i := 2; i >= 0; i-- {
		_, err := db.Add(base.Add(time.Duration(i)*time.Minute), 0, nil)
		require.NoError(t, err)
	}
	pending, err := db.Undelivered()
	require.NoError(t, err)
	require.Len(t, pending, 3)
	require.True(t, pending[0].Time.Get().Before(pending[1].Time.Get()))
	require.True(t, pending[1].Time.Get().Before(pending[2].Time.Get()))
}

func TestPurgeOldRecords(t *testing.T) {
	db := setup(t)
	defer db.Close()
	db.maxAlertCount = 10

	base := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		_, err := db.Add(base.Add(time.Duration(i)*time.Second), 0, nil)
		require.NoError(t, err)
		count := int64(0)
		db.DB.Model(&Alert{}).Count(&count)
		require.LessOrEqual(t, count, db.maxAlertCount+1)
	}
}
