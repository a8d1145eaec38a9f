package inmemdb

import (
	"sync"

	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/user"
)

type (
	// DB is an in-memory database shared by the repositories of this package.
	DB struct {
		mutex sync.RWMutex
		seq   int64

		users       map[int64]*user.User
		sessions    map[int64]*kholle.Session // without slots
		slots       map[int64]*kholle.Slot
		preferences []kholle.Preference
		assignments map[int64]*kholle.Assignment
	}
)

func Open() *DB {
	return &DB{
		users:       make(map[int64]*user.User),
		sessions:    make(map[int64]*kholle.Session),
		slots:       make(map[int64]*kholle.Slot),
		assignments: make(map[int64]*kholle.Assignment),
	}
}

// nextID must be called with the write lock held.
func (db *DB) nextID() int64 {
	db.seq++
	return db.seq
}
