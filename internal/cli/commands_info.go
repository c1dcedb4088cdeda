package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/csvtools/internal/schema"
)

func init() {
	Register(Command{
		Name:    "version",
		Summary: "Print the version.",
		Group:   GroupInfo,
		Run:     runVersion,
	})
	Register(Command{
		Name:    "help",
		Args:    "[command]",
		Summary: "Show the command list or the usage of one command.",
		Group:   GroupInfo,
		Run:     runHelp,
	})
}

func runVersion(_ context.Context, env *Env, _ []string) error {
	env.printf("csvtools %s\n", Version)
	return nil
}

func runHelp(_ context.Context, env *Env, args []string) error {
	if len(args) == 0 {
		printHelp(env.Stdout)
		return nil
	}
	c, ok := Lookup(args[0])
	if !ok {
		return usageErrorf("unknown command %q", args[0])
	}
	env.printf("usage: %s\n\n%s\n", c.Usage(), c.Summary)
	return nil
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "csvtools: CSV utilities for DynamoDB-bound exports.")
	fmt.Fprintln(w, "\nUsage: csvtools <command> [arguments]")

	group := ""
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range Commands() {
		if c.Group != group {
			group = c.Group
			fmt.Fprintf(tw, "\n%s:\n", group)
		}
		fmt.Fprintf(tw, "  %s\t%s\n", strings.TrimPrefix(c.Usage(), "csvtools "), c.Summary)
	}
	tw.Flush()

	fmt.Fprintln(w, "\nModels: "+strings.Join(schema.Names(), ", "))
	fmt.Fprintln(w, "Configuration is read from the environment and an optional .env file.")
}
