// Command scout is the chat client: it forwards tool schemas to the
// model, executes model-requested tool calls, and prints the final
// answer.
//
// With a prompt argument it answers once and exits; without one it
// runs an interactive session. Exit code is non-zero on gateway or
// transport failure.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/flynn-ai/scout/internal/agent"
	"github.com/flynn-ai/scout/internal/config"
	apperrors "github.com/flynn-ai/scout/internal/errors"
	"github.com/flynn-ai/scout/internal/mcptool"
	"github.com/flynn-ai/scout/internal/model"
	"github.com/flynn-ai/scout/internal/tool"
)

var (
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	answerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	faintStyle  = lipgloss.NewStyle().Faint(true)
)

func main() {
	configPath := flag.String("config", config.DefaultPath(), "path to config file")
	local := flag.Bool("local", false, "run tools in-process instead of spawning the tool server")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail(err)
	}
	if *local {
		cfg.Tools.Local = true
	}

	ctx := context.Background()

	gateway := model.NewGroqClient(&model.GroqConfig{
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Model:       cfg.Model.Name,
		Timeout:     cfg.ModelTimeout(),
		MaxTokens:   cfg.Model.MaxTokens,
		Temperature: cfg.Model.Temperature,
	})

	source, closeSource, err := buildToolSource(ctx, cfg)
	if err != nil {
		fail(err)
	}
	defer closeSource()

	dispatcher, err := agent.NewDispatcher(&agent.Config{
		Model:       gateway,
		Tools:       source,
		MaxRounds:   cfg.Dispatch.MaxRounds,
		ToolTimeout: cfg.ToolTimeout(),
	})
	if err != nil {
		fail(err)
	}

	if prompt := strings.TrimSpace(strings.Join(flag.Args(), " ")); prompt != "" {
		runOnce(ctx, dispatcher, prompt)
		return
	}

	runInteractive(ctx, dispatcher)
}

// buildToolSource connects the tool transport: the MCP server
// subprocess by default, the in-process registry with --local.
func buildToolSource(ctx context.Context, cfg *config.Config) (agent.ToolSource, func(), error) {
	if cfg.Tools.Local {
		registry := tool.NewRegistry()
		registry.Initialize(tool.NewClient(cfg.LookupTimeout()))
		return &agent.LocalSource{Registry: registry}, func() {}, nil
	}

	session, err := mcptool.Connect(ctx, cfg.Tools.ServerCommand, cfg.Tools.ServerArgs...)
	if err != nil {
		return nil, nil, err
	}
	return session, func() { session.Close() }, nil
}

func runOnce(ctx context.Context, dispatcher *agent.Dispatcher, prompt string) {
	turn, err := dispatcher.Run(ctx, prompt)
	if err != nil {
		fail(err)
	}
	fmt.Println(answerStyle.Render(turn.Answer))
}

func runInteractive(ctx context.Context, dispatcher *agent.Dispatcher) {
	fmt.Println(faintStyle.Render("Scout ready. Type a question, /stats, or exit."))

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Println()
			return
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return
		case line == "/stats":
			printStats(dispatcher)
			continue
		}

		turn, err := dispatcher.Run(ctx, line)
		if err != nil {
			// Gateway and transport errors end the turn, not the
			// session.
			fmt.Println(errorStyle.Render(apperrors.FormatUserMessage(err)))
			continue
		}

		fmt.Println()
		fmt.Println(answerStyle.Render(turn.Answer))
		fmt.Println(faintStyle.Render(fmt.Sprintf("(%d round(s), %d tool call(s), %dms)",
			turn.Rounds, turn.ToolCalls, turn.DurationMs)))
		fmt.Println()
	}
}

func printStats(dispatcher *agent.Dispatcher) {
	snapshot := dispatcher.Stats().Collect()
	b, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		fmt.Println(errorStyle.Render(err.Error()))
		return
	}
	fmt.Println(faintStyle.Render(string(b)))
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(apperrors.FormatUserMessage(err)))
	os.Exit(1)
}
