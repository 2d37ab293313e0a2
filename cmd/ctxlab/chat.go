package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ctxlab/internal/engine"
	"ctxlab/internal/events"
	"ctxlab/internal/types"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with an engine level",
	Long: `Starts an interactive session with the chosen engine level. Each
query becomes a recorded session; queries in one chat share a
conversation id so follow-ups carry their history cost explicitly.

Type "exit" or "quit" to leave.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().IntVarP(&level, "level", "l", 1, "engine level (1 or 2)")
}

func runChat(cmd *cobra.Command, args []string) error {
	if cfg.APIKey == "" {
		return fmt.Errorf("no API key: set GEMINI_API_KEY or api_key in config.json")
	}
	ctx := cmd.Context()

	store, err := events.NewStore(cfg.LogDir, logger)
	if err != nil {
		return err
	}
	eventLogger := events.NewLogger(level, store, logger)

	client := engine.NewGeminiClient(engine.GeminiConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
	}, logger)

	var eng engine.Engine
	switch level {
	case 1:
		eng, err = engine.NewMonolithEngine(ctx, client, client, eventLogger, cfg.SkillsDir, client.Model(), logger)
	case 2:
		eng, err = engine.NewSkillsEngine(ctx, client, client, eventLogger, cfg.SkillsDir, client.Model(), logger)
	default:
		return fmt.Errorf("level %d not implemented (available: 1, 2)", level)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Level %d: %s\n", eng.Level(), eng.Description())
	fmt.Println("Type your query, or \"exit\" to quit.")

	var history []types.ChatMessage
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			break
		}

		answer, updated, err := eng.Run(ctx, query, history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		history = updated
		fmt.Printf("\n%s\n", answer)
	}
	return scanner.Err()
}
