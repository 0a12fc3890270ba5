package main

import (
	"database/sql"

	"github.com/trezcool/goose"

	"github.com/trezcool/cyberlab/fs"
)

var gooseRunFunc = func(command string, db *sql.DB, args ...string) error { // mockable
	return goose.RunFS(command, db, appfs.FS, "migrations", args...)
}

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(args[0], cli.db, args[1:]...)
}
