package cli

import (
	"io"

	"github.com/felixgeelhaar/pacewatch/internal/config"
	"github.com/felixgeelhaar/pacewatch/internal/observe"
	"github.com/felixgeelhaar/pacewatch/internal/store"
)

func openStore(path string) (*store.SQLiteStore, error) {
	if path == "" {
		path = config.DefaultDatabasePath()
	}
	return store.NewSQLiteStore(path)
}

func newObserver(out io.Writer) *observe.Observer {
	if jsonLogs {
		return observe.NewJSON(out, verbose)
	}
	return observe.New(out, verbose)
}
