package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jrsteele09/go-intranet-client/access"
)

func check(c *cli.Context) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	env.store.Initialize(c.Context)

	roles := c.StringSlice(flagRole)
	if c.Bool(flagAdmin) {
		roles = append(roles, access.AdminRoles()...)
	}
	if c.Bool(flagManager) {
		roles = append(roles, access.ManagerRoles()...)
	}

	guard := access.NewGuard(env.store, access.WithGuardLogger(env.log))
	outcome := guard.Check(access.Requirement{
		Roles:      roles,
		RequireAll: c.Bool(flagAllRoles),
		Companies:  c.IntSlice(flagCompany),
	})

	decision := outcome.Decision
	switch decision.Kind {
	case access.DecisionAllow:
		fmt.Println("Acesso permitido.")
		return nil
	case access.DecisionRoleDenied:
		fmt.Printf("Acesso negado: perfil %q não está entre [%s].\n",
			decision.ActualRole, strings.Join(decision.RequiredRoles, ", "))
	case access.DecisionCompanyDenied:
		fmt.Printf("Acesso negado: empresa %d não está entre %v.\n",
			decision.ActualCompany, decision.AllowedCompanies)
	default:
		fmt.Println(decision.Message)
		if outcome.Redirect != "" {
			fmt.Printf("Use `intranet login` para autenticar.\n")
		}
	}
	return cli.Exit("", 1)
}
