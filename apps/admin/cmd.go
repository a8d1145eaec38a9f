package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/user"
	"github.com/trezcool/khollendar/services/scheduler"
)

var (
	readCodeFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sql.DB
	usrSvc    *user.Service
	kholleSvc *kholle.Service
	job       *scheduler.AssignmentJob
	validate  *validator.Validate
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command on the embedded migrations (up, down, status, ...)")
	fmt.Println("  adduser -username USERNAME [-admin] [-nocode] - create a user; the secret code is prompted next")
	fmt.Println("  resetcode -username USERNAME - clear a user's secret code, to be defined again on next login")
	fmt.Println("  assign -session ID | -upcoming - assign one session, or every session starting soon")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant administration rights.")
	addUserNoCode := addUserCmd.Bool("nocode", false, "Let the user define their code on first login.")

	resetCodeCmd := flag.NewFlagSet("resetcode", flag.ContinueOnError)
	resetCodeUname := resetCodeCmd.String("username", "", "The user's username.")

	assignCmd := flag.NewFlagSet("assign", flag.ContinueOnError)
	assignSession := assignCmd.Int64("session", 0, "The session to assign.")
	assignUpcoming := assignCmd.Bool("upcoming", false, "Assign every session starting within the configured horizon.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		var code string
		if !*addUserNoCode {
			fmt.Print("Enter code:")
			raw, err := readCodeFunc(syscall.Stdin)
			fmt.Println()
			if err != nil {
				return err
			}
			if len(raw) == 0 {
				addUserCmd.Usage()
				return errHelp
			}
			code = string(raw)
		}
		return cli.addUser(*addUserUname, code, *addUserAdmin)

	case "resetcode":
		if err := resetCodeCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetCodeUname == "" {
			resetCodeCmd.Usage()
			return errHelp
		}
		return cli.resetCode(*resetCodeUname)

	case "assign":
		if err := assignCmd.Parse(args[2:]); err != nil {
			return err
		}
		switch {
		case *assignUpcoming && *assignSession == 0:
			return cli.assignUpcoming()
		case !*assignUpcoming && *assignSession > 0:
			return cli.assignSession(*assignSession)
		}
		assignCmd.Usage()
		return errHelp

	default:
		cli.printUsage()
		return errHelp
	}
}
