// Command assistant is a terminal front end for the personal assistant: a
// supervisor agent delegating to calendar, email and contact agents, with
// threads persisted between runs.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NikhilKumarMandal/multi-agent-system/assistant"
	"github.com/NikhilKumarMandal/multi-agent-system/checkpoint"
	"github.com/NikhilKumarMandal/multi-agent-system/config"
	"github.com/NikhilKumarMandal/multi-agent-system/core"
	"github.com/NikhilKumarMandal/multi-agent-system/model"
)

// GatewayFactory builds the model gateway from the loaded configuration.
type GatewayFactory func(cfg *config.Config) (model.Gateway, error)

// App holds the injectable dependencies of the CLI.
type App struct {
	Gateway GatewayFactory
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer

	configPath string
	threadID   string
	message    string
	verbose    bool
}

func defaultGateway(cfg *config.Config) (model.Gateway, error) { return cfg.Gateway() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &App{Gateway: defaultGateway, Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr}
	if err := app.Command().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// Command builds the cobra command tree.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:           "assistant",
		Short:         "assistant - personal assistant for calendar, email and contacts",
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (TOML or YAML; default ~/.assistant/config.toml)")
	root.PersistentFlags().StringVarP(&a.threadID, "thread", "t", "cli", "conversation thread id")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "print tool calls and results before each answer")
	root.SetIn(a.Stdin)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)

	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		RunE:  a.runChat,
	}

	askCmd := &cobra.Command{
		Use:   "ask",
		Short: "Send a single message and print the answer",
		RunE:  a.runAsk,
	}
	askCmd.Flags().StringVarP(&a.message, "message", "m", "", "message to send")
	_ = askCmd.MarkFlagRequired("message")

	threadsCmd := &cobra.Command{
		Use:   "threads",
		Short: "List saved threads",
		RunE:  a.runThreads,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Print the saved history of a thread",
		RunE:  a.runHistory,
	}

	root.AddCommand(chatCmd, askCmd, threadsCmd, historyCmd)
	return root
}

func (a *App) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath()); err == nil {
			path = config.DefaultPath()
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (checkpoint.Store, error) {
	store, err := checkpoint.Open(ctx, cfg.CheckpointOptions())
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	return store, nil
}

// open wires the assistant: config, store, logger and gateway.
func (a *App) open(ctx context.Context) (*assistant.Assistant, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, err
	}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	gw, err := a.Gateway(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	logger := cfg.Logger(a.Stderr).WithComponent("assistant")
	asst, err := assistant.New(gw, cfg.AssistantOptions(store, logger))
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return asst, nil
}

func (a *App) runAsk(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	asst, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer asst.Close()

	res, err := asst.Turn(ctx, a.threadID, a.message)
	if err != nil {
		return fmt.Errorf("agent error: %w", err)
	}
	a.printSteps(res.NewMessages)
	fmt.Fprintln(a.Stdout, res.Answer)
	return nil
}

func (a *App) runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	asst, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer asst.Close()

	fmt.Fprintf(a.Stdout, "assistant (thread %s, type 'exit' to quit)\n", a.threadID)
	scanner := bufio.NewScanner(a.Stdin)
	for {
		fmt.Fprint(a.Stdout, "\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		res, err := asst.Turn(ctx, a.threadID, input)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(a.Stderr, "Error: %v\n", err)
			continue
		}
		a.printSteps(res.NewMessages)
		fmt.Fprintln(a.Stdout, res.Answer)
	}
	return scanner.Err()
}

func (a *App) runThreads(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	lister, ok := store.(checkpoint.Lister)
	if !ok {
		return errors.New("checkpoint backend cannot list threads")
	}
	ids, err := lister.Threads(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(a.Stdout, id)
	}
	return nil
}

func (a *App) runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	msgs, err := store.Load(ctx, a.threadID)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		fmt.Fprintln(a.Stdout, formatMessage(m))
	}
	return nil
}

// printSteps writes the tool exchanges of a turn when --verbose is set.
func (a *App) printSteps(msgs []core.Message) {
	if !a.verbose {
		return
	}
	for _, m := range msgs {
		if m.Role == core.RoleTool || m.HasToolCalls() {
			fmt.Fprintln(a.Stdout, formatMessage(m))
		}
	}
}

func formatMessage(m core.Message) string {
	switch {
	case m.Role == core.RoleTool && m.IsError:
		return fmt.Sprintf("[tool %s failed] %s", m.Name, m.Content)
	case m.Role == core.RoleTool:
		return fmt.Sprintf("[tool %s] %s", m.Name, m.Content)
	case m.HasToolCalls():
		names := make([]string, len(m.ToolCalls))
		for i, c := range m.ToolCalls {
			names[i] = c.Name
		}
		return fmt.Sprintf("[%s -> %s] %s", m.Role, strings.Join(names, ", "), m.Content)
	default:
		return fmt.Sprintf("[%s] %s", m.Role, m.Content)
	}
}
