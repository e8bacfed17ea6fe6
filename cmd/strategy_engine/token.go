package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/strategy-engine/internal/config"
	"github.com/jonathan/strategy-engine/internal/server"
)

var tokenOperator string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an operator JWT",
	Long:  `Mints a bearer token for the approval and dispatch-retry endpoints. The operator identity is recorded as approved_by on campaigns approved with this token.`,
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenOperator, "operator", "", "Operator identity, e.g. an email address (required)")
	_ = tokenCmd.MarkFlagRequired("operator")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(_ *cobra.Command, _ []string) error {
	jwtConfig, err := config.NewJWTConfig()
	if err != nil {
		return err
	}

	token, err := server.NewJWTService(jwtConfig).GenerateToken(tokenOperator)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
