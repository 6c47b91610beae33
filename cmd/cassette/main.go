// Command cassette inspects recorded cassettes.
package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/akupila/vcr/cassette"
	"github.com/akupila/vcr/match"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "cassette",
		Short:         "Inspect recorded HTTP cassettes",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newInspectCmd(), newVerifyCmd(), newMatchersCmd())
	return root
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the interactions stored in a cassette",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cassette.Load(args[0])
			if err != nil {
				return err
			}
			if !c.Existed() {
				return fmt.Errorf("cassette %s does not exist", c.Path())
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tMETHOD\tURI\tSTATUS\tBODY")
			for i, in := range c.Interactions() {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d %s\t%d bytes\n",
					i,
					strings.ToUpper(in.Request.Method),
					in.Request.URL,
					in.Response.StatusCode,
					in.Response.Status,
					len(in.Response.Body),
				)
			}
			return w.Flush()
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE...",
		Short: "Check that cassettes can be loaded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				c, err := cassette.Load(path)
				switch {
				case err != nil:
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: %v\n", path, err)
				case !c.Existed():
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL %s: does not exist\n", c.Path())
				default:
					fmt.Fprintf(cmd.OutOrStdout(), "ok   %s: %d interactions\n", c.Path(), c.Len())
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d cassettes failed", failed, len(args))
			}
			return nil
		},
	}
}

func newMatchersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "matchers",
		Short: "List the built-in matchers",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			defaults := map[string]bool{}
			for _, n := range match.DefaultNames {
				defaults[n] = true
			}
			for _, n := range match.Default.Names() {
				if defaults[n] {
					fmt.Fprintf(cmd.OutOrStdout(), "%s (default)\n", n)
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
		},
	}
}
