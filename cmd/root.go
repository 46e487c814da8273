package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hr-auth",
	Short: "HR portal authentication service",
	Long:  `Account lifecycle for the HR portal: signup, email verification, login and password reset over HTTP, plus session validation over gRPC.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
