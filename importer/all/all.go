package all

import (
	// Import all the loaders so they register themselves
	_ "github.com/darianmavgo/pdsimport/importer/embedded"
	_ "github.com/darianmavgo/pdsimport/importer/sqlite3"
)
