package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "oliveedge",
	Short: "Olive Edge storefront backend",
	Long:  "Olive Edge is the storefront backend: catalogue, carts, orders, payments, and back-office analytics.",
}

func main() {
	rootCmd.AddCommand(serveCmd, routeListCmd, seedCmd, queueWorkCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
