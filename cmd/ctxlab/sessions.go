package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"ctxlab/internal/events"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recorded sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := events.NewStore(cfg.LogDir, logger)
		if err != nil {
			return err
		}
		sessions, err := store.LoadAll()
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("No sessions recorded.")
			return nil
		}
		for _, s := range sessions {
			text := s.QueryText
			if len(text) > 50 {
				text = text[:50] + "..."
			}
			fmt.Printf("%s  L%d  seq=%d  %6d tokens  %s  %q\n",
				s.StartedAt.Local().Format(time.DateTime),
				s.Level, s.Sequence, s.TotalTokens, s.QueryID, text)
		}
		return nil
	},
}
