package alertdb

import (
	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// Alert is one motion alert that was permitted by the cooldown gate.
// Delivered stays false until the dispatch worker confirms the notification
// went out, so an unclean shutdown can never lose an alert silently.
type Alert struct {
	BaseModel
	Time          dbh.IntTime                  `json:"time"`
	ImageID       int64                        `json:"imageID"` // Retained snapshot id, 0 if the snapshot could not be saved
	Detail        *dbh.JSONField[AlertDetail]  `json:"detail"`
	Delivered     bool                         `json:"delivered"`
	DeliveryError string                       `json:"deliveryError"` // Last dispatch failure, empty on success
}

// AlertDetail is the region payload of an alert, stored as JSON.
type AlertDetail struct {
	Resolution [2]int       `json:"resolution"` // Width, height of the frame the detection ran on
	Regions    []RegionJSON `json:"regions"`
	TotalArea  int          `json:"totalArea"`
}

type RegionJSON struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
	Area   int `json:"area"`
}
