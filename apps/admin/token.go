package main

import (
	"fmt"

	"github.com/spf13/cobra"

	echoapi "github.com/definite-d/zonosign-backend/apps/api/echo"
)

func (cli *commandLine) newTokenCommand() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for a user id (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			uid, err := requireUser(userID)
			if err != nil {
				return err
			}
			token, err := echoapi.GenerateToken(echoapi.NewClaims(uid, cli.conf), cli.conf.SecretKey)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User id")
	return cmd
}
