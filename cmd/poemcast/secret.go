package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/jgoulah/poemcast/internal/secrets"
	"github.com/spf13/cobra"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage credentials stored in the OS keychain",
	Long: `Stores API keys and tokens in the system keychain so they do not have to
live in the config file or environment. Values from the environment or the
config file take precedence over the keychain.

Available secrets: ` + strings.Join(secrets.Names(), ", "),
}

var secretSetCmd = &cobra.Command{
	Use:   "set [name]",
	Short: "Store a secret (value is read from stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretSet,
}

var secretGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Check whether a secret is stored",
	Args:  cobra.ExactArgs(1),
	RunE:  runSecretGet,
}

func init() {
	secretCmd.AddCommand(secretSetCmd, secretGetCmd)
	rootCmd.AddCommand(secretCmd)
}

func runSecretSet(cmd *cobra.Command, args []string) error {
	name := strings.ToUpper(args[0])
	if !secrets.Known(name) {
		return fmt.Errorf("unknown secret: %s (available: %s)", name, strings.Join(secrets.Names(), ", "))
	}

	fmt.Fprintf(os.Stderr, "Enter value for %s and press Enter: ", name)
	value, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && value == "" {
		return fmt.Errorf("reading value: %w", err)
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("empty value for %s", name)
	}

	if err := keychain.Set(name, value); err != nil {
		return fmt.Errorf("saving %s to keychain: %w", name, err)
	}
	fmt.Printf("✓ Saved %s to the keychain\n", name)
	return nil
}

func runSecretGet(cmd *cobra.Command, args []string) error {
	name := strings.ToUpper(args[0])
	v, err := secrets.Lookup(keychain, name)
	if err != nil {
		return err
	}
	// Never print the value itself
	fmt.Printf("✓ %s is set (%d characters)\n", name, len(v))
	return nil
}
