package main

import (
	"context"
	"fmt"

	"github.com/trezcool/khollendar/core/user"
)

// addUser validates and creates a user.User; code may be empty.
func (cli *commandLine) addUser(uname, code string, isAdmin bool) error {
	ctx := context.Background()
	nu := user.NewUser{Username: uname, Code: code, IsAdmin: isAdmin}
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "user %q created (id %d)\n", usr.Username, usr.ID)
	return nil
}

func (cli *commandLine) resetCode(uname string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByUsername(ctx, uname)
	if err != nil {
		return err
	}
	if _, err = cli.usrSvc.ResetCode(ctx, usr.ID); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "code of %q cleared\n", usr.Username)
	return nil
}
