package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.NewApp()
	app.Name = "intranet"
	app.Usage = "Log in to the company intranet and inspect session and access state"
	app.Commands = []*cli.Command{
		{
			Name:  "login",
			Usage: "Authenticate and store a session",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    flagUser,
					Aliases: []string{"u"},
					Usage:   "User code (e.g. F04821)",
				},
				&cli.StringFlag{
					Name:    flagPassword,
					Aliases: []string{"p"},
					Usage:   "Password (prompted when omitted)",
				},
				&cli.IntFlag{
					Name:    flagCompany,
					Aliases: []string{"c"},
					Usage:   "Company identifier",
					Value:   1,
				},
			},
			Action: login,
		},
		{
			Name:   "logout",
			Usage:  "End the session here and in every other terminal sharing it",
			Action: logout,
		},
		{
			Name:   "whoami",
			Usage:  "Show the logged-in user",
			Action: whoami,
		},
		{
			Name:   "status",
			Usage:  "Show session expiry and backend health",
			Action: status,
		},
		{
			Name:  "check",
			Usage: "Evaluate an access requirement against the current session",
			Flags: []cli.Flag{
				&cli.StringSliceFlag{
					Name:    flagRole,
					Aliases: []string{"r"},
					Usage:   "Acceptable role (repeatable)",
				},
				&cli.BoolFlag{
					Name:  flagAllRoles,
					Usage: "Require the role to match every --role value instead of any",
				},
				&cli.IntSliceFlag{
					Name:  flagCompany,
					Usage: "Acceptable company identifier (repeatable)",
				},
				&cli.BoolFlag{
					Name:  flagAdmin,
					Usage: "Shorthand for the predefined admin role set",
				},
				&cli.BoolFlag{
					Name:  flagManager,
					Usage: "Shorthand for the predefined manager-or-above role set",
				},
			},
			Action: check,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
