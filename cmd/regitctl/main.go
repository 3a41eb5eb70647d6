package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "regitctl: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "regitctl",
		Usage: "Administrative tooling for the regit contract registry",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level for commands that touch the database",
				Value: "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Create the database schema if it does not exist",
				Action: executeMigrate,
			},
			{
				Name:  "seed",
				Usage: "Create the default departments and the sample contracts",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "owner",
						Usage: "Subject that will own the sample contracts",
						Value: "admin",
					},
				},
				Action: executeSeed,
			},
			{
				Name:  "token",
				Usage: "Work with access tokens",
				Commands: []*cli.Command{
					{
						Name:  "issue",
						Usage: "Mint a signed access token using the configured secret",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "subject", Aliases: []string{"s"}, Usage: "Token subject (principal id)", Required: true},
							&cli.StringFlag{Name: "email", Usage: "Email claim"},
							&cli.StringFlag{Name: "name", Usage: "Display name claim"},
							&cli.StringSliceFlag{Name: "group", Aliases: []string{"g"}, Usage: "Group claim. Can be specified multiple times."},
							&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 8 * time.Hour, Sources: cli.EnvVars("JWT_TOKEN_TTL")},
							&cli.StringFlag{Name: "secret", Usage: "Signing secret", Sources: cli.EnvVars("JWT_SECRET")},
							&cli.StringFlag{Name: "issuer", Usage: "Issuer claim", Value: "regit", Sources: cli.EnvVars("JWT_ISSUER")},
							&cli.StringFlag{Name: "audience", Usage: "Audience claim", Value: "regit-api", Sources: cli.EnvVars("JWT_AUDIENCE")},
						},
						Action: executeTokenIssue,
					},
				},
			},
			{
				Name:  "authz",
				Usage: "Evaluate authorization decisions offline",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "roles",
						Usage: "Load the group-to-role mapping from `FILE`",
					},
				},
				Commands: []*cli.Command{
					{
						Name:  "check",
						Usage: "Evaluate one decision and print every rule's verdict",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "principal", Aliases: []string{"p"}, Usage: "Principal id. Omit for an anonymous caller."},
							&cli.StringSliceFlag{Name: "group", Aliases: []string{"g"}, Usage: "Principal group, mapped to a role. Can be specified multiple times."},
							&cli.StringFlag{Name: "operation", Aliases: []string{"o"}, Usage: "Create, Read, Update, Delete, Approve or Reject", Required: true},
							&cli.StringFlag{Name: "owner", Usage: "Resource owner id"},
							&cli.StringFlag{Name: "status", Usage: "Resource status", Value: "submitted"},
							&cli.BoolFlag{Name: "no-resource", Usage: "Evaluate without a resource"},
						},
						Action: executeCheck,
					},
					{
						Name:  "test",
						Usage: "Run a YAML suite of expected decisions",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "Load the suite from `FILE`", Required: true},
							&cli.StringSliceFlag{Name: "case", Usage: "Only run cases whose name matches the glob. Can be specified multiple times."},
						},
						Action: executeSuite,
					},
				},
			},
		},
	}
}
