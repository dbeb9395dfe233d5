package imagestore

import (
	"fmt"

	"github.com/cyclopcam/dbh"
)

// BaseModel is our base class for a GORM model.
// The default GORM Model uses int, but we prefer int64
type BaseModel struct {
	ID int64 `gorm:"primaryKey" json:"id"`
}

// RetainedImage is one alert snapshot on disk.
// The autoincrement primary key doubles as the monotonic sequence id that
// breaks eviction ties between images with identical timestamps.
type RetainedImage struct {
	BaseModel
	Time     dbh.IntTime `json:"time"`
	Filename string      `json:"filename"` // Relative to the store root
	Bytes    int64       `json:"bytes"`
}

// Filename layout: timestamp + sequence id, so the directory is
// human-scannable and sorts chronologically.
func makeFilename(t dbh.IntTime, id int64) string {
	return fmt.Sprintf("motion_%v_%06d.jpg", t.Get().UTC().Format("20060102-150405.000"), id)
}
