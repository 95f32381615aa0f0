package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func logout(c *cli.Context) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	// Logout never fails from the caller's perspective: backend errors are
	// logged and the local session is cleared regardless.
	env.store.Logout(c.Context)

	fmt.Println("Logout realizado com sucesso.")
	return nil
}
