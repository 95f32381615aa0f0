package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func whoami(c *cli.Context) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	snapshot := env.store.Initialize(c.Context)
	if !snapshot.Authenticated() {
		message := snapshot.Error
		if message == "" {
			message = "Nenhuma sessão ativa. Use `intranet login`."
		}
		return cli.Exit(message, 1)
	}

	user := snapshot.User
	fmt.Printf("Usuário: %s (%s)\n", user.Name, user.Code)
	fmt.Printf("Perfil:  %s\n", user.Role)
	fmt.Printf("Empresa: %s (%d)\n", user.CompanyName, user.CompanyID)
	if user.LastAccess != nil {
		fmt.Printf("Último acesso: %s\n", user.LastAccess.Local().Format("02/01/2006 15:04"))
	}
	return nil
}
