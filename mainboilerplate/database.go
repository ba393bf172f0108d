package mainboilerplate

import (
	log "github.com/sirupsen/logrus"
	"go.gradalloc.dev/core/roster/sqlstore"
)

// DatabaseConfig configures the roster database.
type DatabaseConfig struct {
	Driver    string `long:"driver" env:"DRIVER" default:"sqlite3" choice:"sqlite3" choice:"postgres" description:"Database driver"`
	DSN       string `long:"dsn" env:"DSN" default:"gradalloc.db" description:"Database data source name (a file path for sqlite3, or a connection string for postgres)"`
	CacheSize int    `long:"cache-size" env:"CACHE_SIZE" default:"4096" description:"Number of preferences cached during an allocation round. If zero, preferences are not cached"`
}

// MustOpen opens the roster database and applies its schema.
func (c *DatabaseConfig) MustOpen() *sqlstore.Store {
	var store, err = sqlstore.Open(c.Driver, c.DSN)
	Must(err, "failed to open roster database", "driver", c.Driver)

	log.WithFields(log.Fields{"driver": c.Driver}).Info("opened roster database")
	return store
}
