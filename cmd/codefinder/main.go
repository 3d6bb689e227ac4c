package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/efebarandurmaz/codefinder/internal/llm"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "codefinder",
		Short:        "Index a GitHub user's Python code and answer questions about it",
		SilenceUsage: true,
		Version:      version,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Optional YAML config file")

	rootCmd.AddCommand(
		newIngestCmd(&configPath),
		newServeCmd(&configPath),
		newUICmd(),
		newHelloCmd(&configPath),
		newProvenanceCmd(&configPath),
		newProvidersCmd(),
	)
	return rootCmd
}

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Available LLM providers:")
			fmt.Fprintln(out)
			names := make([]string, 0, len(llm.KnownProviders))
			for name := range llm.KnownProviders {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Fprintf(out, "  %-14s %s\n", name, llm.KnownProviders[name])
			}
			fmt.Fprintln(out, "  custom         (set base_url to any OpenAI-compatible endpoint)")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "The embedding model must return 1536-dimensional vectors.")
			fmt.Fprintln(out, "Configure in the config file or via environment:")
			fmt.Fprintln(out, "  CODEFINDER_LLM_PROVIDER=ollama")
			fmt.Fprintln(out, "  CODEFINDER_LLM_MODEL=llama3")
			fmt.Fprintln(out, "  OPENAI_API_KEY=sk-...")
		},
	}
}
