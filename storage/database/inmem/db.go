// Package inmemdb keeps the app data in memory. It backs the tests and the admin dry-run mode.
package inmemdb

import (
	"sync"

	"github.com/trezcool/cyberlab/core/lab"
	"github.com/trezcool/cyberlab/core/quiz"
)

// DB is shared by the repositories so cascading deletes see every table.
type DB struct {
	sync.RWMutex

	labs        map[string]lab.Lab
	devices     map[string]lab.Device
	connections map[string]lab.Connection
	sessions    map[string]lab.Session // key: user_id/lab_id
	questions   map[string]quiz.Question
}

func Open() *DB {
	return &DB{
		labs:        make(map[string]lab.Lab),
		devices:     make(map[string]lab.Device),
		connections: make(map[string]lab.Connection),
		sessions:    make(map[string]lab.Session),
		questions:   make(map[string]quiz.Question),
	}
}

func sessionKey(userID, labID string) string {
	return userID + "/" + labID
}
