// Package main provides the loom CLI entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/loomworks/loom/adapter"
	"github.com/loomworks/loom/config"
	"github.com/loomworks/loom/llm"
	"github.com/loomworks/loom/mcp"
	"github.com/loomworks/loom/react"
	"github.com/loomworks/loom/signature"
	"github.com/loomworks/loom/store"
	"github.com/loomworks/loom/tools"
)

var (
	// Global flags
	provider string
	maxSteps int
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Composable reasoning modules over typed signatures",
		Long: `A CLI tool for running signature-driven reasoning modules.

A signature declares what a task consumes and produces ("question -> answer");
the ask command runs a bounded tool-use loop over it and extracts the outputs.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "openai", "LLM provider (openai, anthropic, deepseek, gemini)")
	rootCmd.PersistentFlags().IntVarP(&maxSteps, "max-steps", "m", 0, "Step budget for the loop (0 = configured default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show each model request and response")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(providersCmd())
	rootCmd.AddCommand(runsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var sigSpec string
	var httpDomains []string
	var mcpServers []string
	var mcpConfigPath string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question with a bounded tool-use loop",
		Long: `Run a question through the think-act-observe loop.

Tools available to the loop:
- http_request: fetch data from URLs (restrict with --http-domain)
- any tools exposed by MCP servers given via --mcp or --mcp-config

Pass --db to persist the run (question, answer, trajectory) to SQLite.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), args[0], sigSpec, httpDomains, mcpServers, mcpConfigPath, dbPath)
		},
	}

	cmd.Flags().StringVarP(&sigSpec, "signature", "s", "question -> answer", "Signature shorthand for the task")
	cmd.Flags().StringArrayVar(&httpDomains, "http-domain", nil, "Domain the http_request tool may reach (repeatable; empty = all)")
	cmd.Flags().StringArrayVar(&mcpServers, "mcp", nil, "MCP server command (repeatable)")
	cmd.Flags().StringVar(&mcpConfigPath, "mcp-config", "", "Path to MCP config file")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path for run persistence")

	return cmd
}

func runAsk(ctx context.Context, question, sigSpec string, httpDomains, mcpServers []string, mcpConfigPath, dbPath string) error {
	settings, err := config.New(provider)
	if err != nil {
		return err
	}

	base, err := signature.Parse(sigSpec)
	if err != nil {
		return err
	}
	if len(base.Inputs) != 1 {
		return fmt.Errorf("ask needs a single-input signature, got %d inputs", len(base.Inputs))
	}

	runner, err := buildRunner(settings)
	if err != nil {
		return err
	}

	toolList := []tools.Tool{
		tools.NewHTTPTool(30).WithAllowedDomains(httpDomains),
	}

	mcpTools, closers, err := collectMCPTools(ctx, mcpServers, mcpConfigPath)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()
	toolList = append(toolList, mcpTools...)

	steps := settings.Loop.MaxSteps
	if maxSteps > 0 {
		steps = maxSteps
	}

	loop, err := react.New(base, toolList,
		react.WithRunner(runner),
		react.WithMaxSteps(steps))
	if err != nil {
		return err
	}

	inputs := signature.Values{base.Inputs[0].Name: question}
	pred, err := loop.Forward(ctx, inputs)
	if err != nil {
		return err
	}

	trajectory := pred.GetString(react.FieldTrajectory)
	if verbose {
		fmt.Println(trajectory)
		fmt.Println()
	}
	for _, name := range base.OutputNames() {
		fmt.Printf("%s: %s\n", name, pred.GetString(name))
	}

	if dbPath != "" {
		s, err := store.Open(dbPath)
		if err != nil {
			return err
		}
		defer s.Close()

		id, err := s.SaveRun(ctx, store.Run{
			Module:     base.Name,
			Inputs:     inputs,
			Outputs:    pred.Values(),
			Trajectory: trajectory,
			Steps:      strings.Count(trajectory, "\nStep "),
		})
		if err != nil {
			return err
		}
		fmt.Printf("\nsaved run %s\n", id)
	}

	return nil
}

func chatCmd() *cobra.Command {
	var noStream bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat with the configured provider",
		Long: `Talk to the configured LLM provider directly, outside any signature.

Replies stream to the terminal as they arrive; the conversation keeps
history for the session. Type "exit" or press Ctrl-D to quit. Session
token usage is printed on exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), noStream)
		},
	}

	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Wait for complete replies instead of streaming")

	return cmd
}

func runChat(ctx context.Context, noStream bool) error {
	settings, err := config.New(provider)
	if err != nil {
		return err
	}
	llmProvider, err := buildProvider(settings)
	if err != nil {
		return err
	}
	client := llm.NewClient(llmProvider)

	fmt.Printf("chatting with %s (%s), type \"exit\" to quit\n", llmProvider.Name(), llmProvider.Model())

	var history []llm.ChatMessage
	var session llm.TokenUsage
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}

		history = append(history, llm.UserMessage(line))
		reply, usage, err := oneTurn(ctx, client, history, noStream)
		if err != nil {
			return err
		}
		history = append(history, llm.AssistantMessage(reply))
		session.Add(usage)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if session.TotalTokens > 0 {
		fmt.Printf("\ntokens: %d prompt, %d completion, %d total\n",
			session.PromptTokens, session.CompletionTokens, session.TotalTokens)
	}
	return nil
}

// oneTurn sends the history and prints the reply, streaming unless
// asked not to.
func oneTurn(ctx context.Context, client *llm.Client, history []llm.ChatMessage, noStream bool) (string, *llm.TokenUsage, error) {
	if noStream {
		content, usage, err := client.ChatWithUsage(ctx, history)
		if err != nil {
			return "", nil, err
		}
		fmt.Println(content)
		return content, usage, nil
	}

	chunks := make(chan string)
	done := make(chan struct{})
	var reply strings.Builder
	go func() {
		defer close(done)
		for chunk := range chunks {
			fmt.Print(chunk)
			reply.WriteString(chunk)
		}
	}()

	usage, err := client.StreamChat(ctx, history, chunks)
	close(chunks)
	<-done
	fmt.Println()
	if err != nil {
		return "", usage, err
	}
	return reply.String(), usage, nil
}

// buildProvider resolves the configured provider through the builder.
func buildProvider(settings config.Settings) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	return providerType.Model(settings.LLM.Model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		FromEnv()
}

// buildRunner wires the configured provider into the default chat runner.
func buildRunner(settings config.Settings) (adapter.Runner, error) {
	llmProvider, err := buildProvider(settings)
	if err != nil {
		return nil, err
	}

	var opts []adapter.ChatOption
	opts = append(opts,
		adapter.WithMaxAttempts(settings.Loop.RequestRetries),
		adapter.WithParseAttempts(settings.Loop.ParseRetries),
	)
	if verbose {
		opts = append(opts, adapter.WithCallbacks(adapter.Callbacks{
			OnRequest: func(sig signature.Signature, prompt string) {
				fmt.Fprintf(os.Stderr, "--> [%s]\n%s\n", sig.Name, prompt)
			},
			OnResponse: func(sig signature.Signature, content string, err error) {
				if err != nil {
					fmt.Fprintf(os.Stderr, "<-- [%s] error: %v\n", sig.Name, err)
					return
				}
				fmt.Fprintf(os.Stderr, "<-- [%s]\n%s\n", sig.Name, content)
			},
		}))
	}

	return adapter.NewChat(llm.NewClient(llmProvider), opts...), nil
}

// collectMCPTools connects to each MCP server and gathers its tools.
func collectMCPTools(ctx context.Context, servers []string, configPath string) ([]tools.Tool, []*mcp.ToolManager, error) {
	type spec struct {
		label  string
		server mcp.Server
	}

	var specs []spec
	for _, command := range servers {
		parts := strings.Fields(command)
		if len(parts) == 0 {
			continue
		}
		specs = append(specs, spec{label: command, server: mcp.Server{Command: parts[0], Args: parts[1:]}})
	}
	if configPath != "" {
		cfg, err := mcp.LoadConfig(configPath)
		if err != nil {
			return nil, nil, err
		}
		for _, name := range cfg.Names() {
			specs = append(specs, spec{label: name, server: cfg.Servers[name]})
		}
	}

	var toolList []tools.Tool
	var managers []*mcp.ToolManager
	for _, s := range specs {
		manager, err := mcp.Discover(ctx, s.server)
		if err != nil {
			for _, m := range managers {
				m.Close()
			}
			return nil, nil, fmt.Errorf("MCP server %q: %w", s.label, err)
		}
		managers = append(managers, manager)
		toolList = append(toolList, manager.Tools()...)
	}

	return toolList, managers, nil
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List supported LLM providers",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range llm.SupportedProviders() {
				model, err := config.ModelFor(name)
				if err != nil {
					return err
				}
				fmt.Printf("%-10s default model: %s\n", name, model)
			}
			return nil
		},
	}
}

func runsCmd() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer s.Close()

			runs, err := s.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}
			for _, run := range runs {
				fmt.Printf("%s  %s  steps=%d\n", run.ID, run.Module, run.Steps)
				if verbose {
					fmt.Printf("  inputs:  %v\n", run.Inputs)
					fmt.Printf("  outputs: %v\n", run.Outputs)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", ".loom/loom.db", "Database path for run persistence")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")

	return cmd
}
