// Package alertdb records every permitted motion alert and its delivery
// state. The alert loop writes a row before the notification is attempted,
// and the dispatch worker marks it delivered or failed afterwards, so that a
// crash or shutdown can always account for what went out and what did not.
package alertdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
	"gorm.io/gorm"
)

const defaultMaxAlertCount = 10000

type AlertDB struct {
	Log logs.Log
	DB  *gorm.DB

	// Old alerts are purged when the table exceeds this count
	maxAlertCount int64
}

func NewAlertDB(logger logs.Log, dbFilename string) (*AlertDB, error) {
	os.MkdirAll(filepath.Dir(dbFilename), 0777)
	db, err := dbh.OpenDB(logger, dbh.MakeSqliteConfig(dbFilename), Migrations(logger), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open alert database %v: %w", dbFilename, err)
	}
	return &AlertDB{
		Log:           logger,
		DB:            db,
		maxAlertCount: defaultMaxAlertCount,
	}, nil
}

// Add records a new alert, not yet delivered.
func (a *AlertDB) Add(t time.Time, imageID int64, detail *AlertDetail) (*Alert, error) {
	a.purgeOldRecords()
	alert := &Alert{
		Time:    dbh.MakeIntTime(t),
		ImageID: imageID,
	}
	if detail != nil {
		alert.Detail = dbh.MakeJSONField(*detail)
	}
	if err := a.DB.Create(alert).Error; err != nil {
		return nil, err
	}
	return alert, nil
}

// MarkDelivered records that the alert's notification went out.
func (a *AlertDB) MarkDelivered(id int64) error {
	return a.DB.Model(&Alert{}).Where("id = ?", id).
		Updates(map[string]any{"delivered": true, "delivery_error": ""}).Error
}

// MarkFailed records the most recent dispatch failure for the alert.
func (a *AlertDB) MarkFailed(id int64, cause string) error {
	return a.DB.Model(&Alert{}).Where("id = ?", id).
		Update("delivery_error", cause).Error
}

// Undelivered returns alerts whose notification has not been confirmed,
// oldest first.
func (a *AlertDB) Undelivered() ([]*Alert, error) {
	var alerts []*Alert
	if err := a.DB.Where("delivered = ?", false).Order("time, id").Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (a *AlertDB) Close() {
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func (a *AlertDB) purgeOldRecords() {
	count := int64(0)
	if err := a.DB.Model(&Alert{}).Count(&count).Error; err != nil {
		return
	}
	if count <= a.maxAlertCount {
		return
	}
	excess := count - a.maxAlertCount
	err := a.DB.Exec("DELETE FROM alert WHERE id IN (SELECT id FROM alert ORDER BY time, id LIMIT ?)", excess).Error
	if err != nil {
		a.Log.Warnf("Failed to purge old alerts: %v", err)
	}
}
