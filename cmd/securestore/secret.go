package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/benaskins/securestore/internal/keychain"
)

var accessibility string

var setCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Store a secret",
	Long:  "Store a secret. If value is omitted, reads from stdin (useful for piping).",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		key := args[0]

		var value string
		if len(args) == 2 {
			value = args[1]
		} else {
			value, err = readValue()
			if err != nil {
				return err
			}
		}

		access := s.cfg.AccessibilityName()
		if cmd.Flags().Changed("accessibility") {
			access = keychain.Some(accessibility)
		}
		if err := s.store.Write(key, value, s.scope, access).Err(); err != nil {
			return fmt.Errorf("storing %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Secret %q stored\n", key)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Retrieve a secret",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		res := s.store.Read(args[0], s.scope)
		if err := res.Err(); err != nil {
			return fmt.Errorf("reading %q: %w", args[0], err)
		}
		val, ok := res.Value.Get()
		if !ok {
			return fmt.Errorf("reading %q: %w", args[0], keychain.ErrNotFound)
		}
		fmt.Fprintln(cmd.OutOrStdout(), val)
		return nil
	},
}

var hasCmd = &cobra.Command{
	Use:   "has <key>",
	Short: "Report whether a secret exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if !s.store.ContainsKey(args[0], s.scope) {
			return fmt.Errorf("%w: %s", keychain.ErrNotFound, args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), "yes")
		return nil
	},
}

var showValues bool

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List secrets in scope",
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		out := cmd.OutOrStdout()
		res := s.store.ReadAll(s.scope)
		if err := res.Err(); err != nil && !errors.Is(err, keychain.ErrNotFound) {
			return fmt.Errorf("listing secrets: %w", err)
		}
		if len(res.Entries) == 0 {
			fmt.Fprintln(out, "No secrets stored")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		if showValues {
			fmt.Fprintln(w, "KEY\tVALUE")
			for _, e := range res.Entries {
				fmt.Fprintf(w, "%s\t%s\n", e.Key, e.Value)
			}
		} else {
			fmt.Fprintln(w, "KEY")
			for _, k := range res.Keys() {
				fmt.Fprintln(w, k)
			}
		}
		return w.Flush()
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <key>",
	Short:   "Remove a secret",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.store.Delete(args[0], s.scope).Err(); err != nil {
			return fmt.Errorf("deleting %q: %w", args[0], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Secret %q deleted\n", args[0])
		return nil
	},
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Remove every secret in scope",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.store.DeleteAll(s.scope).Err(); err != nil {
			return fmt.Errorf("purging secrets: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Secrets purged")
		return nil
	},
}

func readValue() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print("Enter secret value: ")
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		fmt.Println()
		return string(b), nil
	}
	b, err := os.ReadFile("/dev/stdin")
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(b), "\n"), nil
}

func init() {
	setCmd.Flags().StringVar(&accessibility, "accessibility", "", "At-rest policy: passcode, unlocked, unlocked_this_device, first_unlock, first_unlock_this_device")
	listCmd.Flags().BoolVar(&showValues, "values", false, "Print secret values")

	rootCmd.AddCommand(setCmd, getCmd, hasCmd, listCmd, deleteCmd, purgeCmd)
}
