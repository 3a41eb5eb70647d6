package main

import (
	"context"
	"fmt"

	"github.com/regit-contracts/regit/identity"
	"github.com/urfave/cli/v3"
)

func executeTokenIssue(ctx context.Context, cmd *cli.Command) error {
	secret := cmd.String("secret")
	if secret == "" {
		return fmt.Errorf("a signing secret is required (--secret or JWT_SECRET)")
	}

	issuer := identity.NewIssuer(identity.Config{
		Secret:   secret,
		Issuer:   cmd.String("issuer"),
		Audience: cmd.String("audience"),
		TokenTTL: cmd.Duration("ttl"),
	})
	token, err := issuer.Issue(identity.Subject{
		ID:     cmd.String("subject"),
		Email:  cmd.String("email"),
		Name:   cmd.String("name"),
		Groups: cmd.StringSlice("group"),
	})
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	fmt.Fprintln(cmd.Root().Writer, token)
	return nil
}
