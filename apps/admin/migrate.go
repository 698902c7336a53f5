package main

import "github.com/trezcool/attendance/storage/database"

var gooseRunFunc = database.RunGoose // mockable

func (cli *commandLine) migrate(args []string) error {
	return gooseRunFunc(cli.ctx, cli.db, args[0], args[1:]...)
}
