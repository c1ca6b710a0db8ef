package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/testnet-portal/internal/auth"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "operator-key",
		Short:         "Manage the key guarding /internal routes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(hashCmd(), verifyCmd())
	return cmd
}

func hashCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash [key]",
		Short: "Print the OPERATOR_KEY_HASH value for a key (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := keyFromArgs(cmd, args)
			if err != nil {
				return err
			}
			hash, err := auth.HashOperatorKey(key, cost)
			if err != nil {
				return fmt.Errorf("hash key: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func verifyCmd() *cobra.Command {
	var hash string

	cmd := &cobra.Command{
		Use:   "verify [key]",
		Short: "Check a key against a hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hash == "" {
				hash = os.Getenv("OPERATOR_KEY_HASH")
			}
			if hash == "" {
				return errors.New("no hash: pass --hash or set OPERATOR_KEY_HASH")
			}
			key, err := keyFromArgs(cmd, args)
			if err != nil {
				return err
			}
			if err := auth.CompareOperatorKey(hash, key); err != nil {
				return errors.New("key does not match")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return err
		},
	}

	cmd.Flags().StringVar(&hash, "hash", "", "bcrypt hash (defaults to $OPERATOR_KEY_HASH)")
	return cmd
}

func keyFromArgs(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read key: %w", err)
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", errors.New("empty key")
	}
	return key, nil
}
