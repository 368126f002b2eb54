package main

import (
	"context"
	"fmt"

	"github.com/trezcool/studypal/core/user"
)

// addUser creates an active user.User once `nu` passes the same validation as sign ups.
func (cli *commandLine) addUser(nu user.NewUser) error {
	ctx := context.Background()
	if err := nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
		return cli.describe(err)
	}
	usr, err := cli.usrSvc.Create(ctx, nu)
	if err != nil {
		return err
	}
	fmt.Printf("user %s <%s> created\n", usr.ID, usr.Email)
	return nil
}
