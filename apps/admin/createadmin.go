package main

import (
	"fmt"

	"github.com/trezcool/attendance/core/school"
)

// createAdmin registers a school admin with the same checks as the API registration.
func (cli *commandLine) createAdmin(name, email, schoolID, pwd string) error {
	na := school.NewSchoolAdmin{
		Name:            name,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		SchoolID:        schoolID,
	}
	if err := na.Validate(cli.validate); err != nil {
		return err
	}
	adm, err := cli.schoolSvc.RegisterAdmin(cli.ctx, na)
	if err != nil {
		return err
	}
	fmt.Printf("created admin %s <%s>\n", adm.Name, adm.Email)
	return nil
}
