package alertdb

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
		CREATE TABLE alert(
			id INTEGER PRIMARY KEY,
			time INT NOT NULL,
			image_id INT NOT NULL,
			detail TEXT,
			delivered INT NOT NULL,
			delivery_error TEXT NOT NULL
		);

		CREATE INDEX idx_alert_time ON alert(time);
		CREATE INDEX idx_alert_delivered ON alert(delivered);
	`))

	return migs
}
