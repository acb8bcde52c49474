package importer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/darianmavgo/pdsimport/importer/common"
)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]common.Driver)
)

// Register makes a loader driver available by the provided name.
// If Register is called twice with the same name or if driver is nil, it panics.
func Register(name string, driver common.Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if driver == nil {
		panic("importer: Register driver is nil")
	}
	if _, dup := drivers[name]; dup {
		panic("importer: Register called twice for driver " + name)
	}
	drivers[name] = driver
}

func lookupDriver(name string) (common.Driver, error) {
	driversMu.RLock()
	driver, ok := drivers[name]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("importer: unknown loader %q (forgotten import?)", name)
	}
	return driver, nil
}

// Drivers returns a sorted list of the names of the registered loaders.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	list := make([]string, 0, len(drivers))
	for name := range drivers {
		list = append(list, name)
	}
	sort.Strings(list)
	return list
}
