package inmemdb

import (
	"sync"

	"github.com/trackside/carnival/core/audit"
	"github.com/trackside/carnival/core/house"
	"github.com/trackside/carnival/core/race"
	"github.com/trackside/carnival/core/staff"
)

type (
	DB struct {
		race   *raceTable
		house  *houseTable
		action *actionTable
		staff  *staffTable
	}

	raceTable struct {
		races   map[string]*race.Race
		runners map[string]*race.Runner
		mutex   sync.RWMutex
	}

	houseTable struct {
		entries []*house.Entry
		backups map[string][]byte
		mutex   sync.RWMutex
	}

	actionTable struct {
		entries []*audit.Entry
		mutex   sync.RWMutex
	}

	staffTable struct {
		t     map[string]*staff.Staff
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		race: &raceTable{
			races:   make(map[string]*race.Race),
			runners: make(map[string]*race.Runner),
		},
		house: &houseTable{
			backups: make(map[string][]byte),
		},
		action: &actionTable{},
		staff:  &staffTable{t: make(map[string]*staff.Staff)},
	}
	return db, nil
}
