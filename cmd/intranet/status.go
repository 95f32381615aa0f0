package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
)

func status(c *cli.Context) error {
	env, err := setup()
	if err != nil {
		return err
	}
	defer env.close()

	if health, err := env.api.HealthCheck(c.Context); err != nil {
		fmt.Printf("Servidor:  inacessível (%s)\n", env.cfg.APIBaseURL)
	} else {
		fmt.Printf("Servidor:  %s (%s)\n", health.Status, env.cfg.APIBaseURL)
	}

	snapshot := env.store.Initialize(c.Context)
	if !snapshot.Authenticated() {
		fmt.Println("Sessão:    nenhuma")
		return nil
	}

	remaining := env.store.TimeRemaining()
	fmt.Printf("Sessão:    %s (%s)\n", snapshot.User.Name, snapshot.User.Code)
	fmt.Printf("Expira em: %s\n", remaining.Round(time.Second))
	if env.store.NearExpiry(0) {
		fmt.Println("Atenção:   a sessão expira em breve; faça login novamente.")
	}
	return nil
}
