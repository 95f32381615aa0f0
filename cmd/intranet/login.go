package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/ssh/terminal"
)

func login(c *cli.Context) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	userCode := c.String(flagUser)
	if userCode == "" {
		fmt.Print("Usuário: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		userCode = strings.TrimSpace(line)
	}

	password := c.String(flagPassword)
	if password == "" {
		fmt.Print("Senha: ")
		raw, err := terminal.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return err
		}
		password = string(raw)
	}

	user, err := env.store.Login(c.Context, userCode, password, c.Int(flagCompany))
	if err != nil {
		return cli.Exit(env.store.Snapshot().Error, 1)
	}

	fmt.Printf("Login realizado com sucesso.\n")
	fmt.Printf("  Usuário: %s (%s)\n", user.Name, user.Code)
	fmt.Printf("  Perfil:  %s\n", user.Role)
	fmt.Printf("  Empresa: %s (%d)\n", user.CompanyName, user.CompanyID)
	return nil
}
