package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/attendance/core/school"
	"github.com/trezcool/attendance/services/digest"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	ctx         context.Context
	db          *sql.DB
	schoolSvc   *school.Service
	digest      *digestsvc.Digest
	validate    *validator.Validate
	refDataPath string
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, up-to VERSION, down, down-to VERSION, redo, reset, status, version)")
	fmt.Println("  importschools [-file PATH] [-force] - import the school directory")
	fmt.Println("  createadmin -email EMAIL -name NAME -school ID - create a school admin")
	fmt.Println("  resetpassword -email EMAIL [-admin] - reset a teacher's (or admin's) password")
	fmt.Println("  digest - email today's attendance digest to every school's admins")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	importSchoolsCmd := flag.NewFlagSet("importschools", flag.ExitOnError)
	importSchoolsFile := importSchoolsCmd.String("file", "", "A JSON school directory. Defaults to the configured or embedded one.")
	importSchoolsForce := importSchoolsCmd.Bool("force", false, "Replace every existing school.")

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ExitOnError)
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")
	createAdminName := createAdminCmd.String("name", "", "The admin's name.")
	createAdminSchool := createAdminCmd.String("school", "", "The admin's school ID.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ExitOnError)
	resetPasswordEmail := resetPasswordCmd.String("email", "", "The account's email. The password will be prompted next.")
	resetPasswordAdmin := resetPasswordCmd.Bool("admin", false, "The account is a school admin.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "importschools":
		if err := importSchoolsCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.importSchools(*importSchoolsFile, *importSchoolsForce)
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminEmail == "" || *createAdminName == "" || *createAdminSchool == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		return cli.createAdmin(*createAdminName, *createAdminEmail, *createAdminSchool, pwd)
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordEmail == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordEmail, pwd, *resetPasswordAdmin)
	case "digest":
		return cli.sendDigest()
	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
