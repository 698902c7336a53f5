package main

import (
	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/school"
)

func (cli *commandLine) resetPassword(email, pwd string, admin bool) error {
	email = core.CleanString(email, true /* lower */)
	if err := school.ValidatePassword(cli.validate, pwd, "", email); err != nil {
		return err
	}
	if admin {
		return cli.schoolSvc.ResetAdminPassword(cli.ctx, email, pwd)
	}
	return cli.schoolSvc.ResetTeacherPassword(cli.ctx, email, pwd)
}
