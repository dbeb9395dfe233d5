package imagestore

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE retained_image(
			id INTEGER PRIMARY KEY,
			time INT NOT NULL,
			filename TEXT NOT NULL,
			bytes INT NOT NULL
		);

		CREATE INDEX idx_retained_image_time ON retained_image(time);
	`))

	return migs
}
