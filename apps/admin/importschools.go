package main

import (
	"fmt"

	"github.com/trezcool/attendance/fs"
)

func (cli *commandLine) importSchools(path string, force bool) error {
	if path == "" {
		path = cli.refDataPath
	}
	dir, err := appfs.LoadRefData(path)
	if err != nil {
		return err
	}
	n, err := cli.schoolSvc.ImportSchools(cli.ctx, dir, force)
	if err != nil {
		return err
	}
	if n == 0 && !force {
		fmt.Println("schools already imported; use -force to replace them")
		return nil
	}
	fmt.Printf("imported %d schools\n", n)
	return nil
}
