/*
Copyright © 2025 tieubaoca
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tieubaoca/policy-assistant/types"
)

// askCmd runs one question through the same pipeline the server uses.
var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single policy question from the terminal",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
		ctx := cmd.Context()

		sessionID, _ := cmd.Flags().GetString("session")
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		mode, _ := cmd.Flags().GetString("mode")
		email, _ := cmd.Flags().GetString("email")

		chatService, _, closeFn, err := buildChatService(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		result, err := chatService.Ask(ctx, types.ChatRequest{
			Question:     strings.Join(args, " "),
			SessionID:    sessionID,
			UserEmail:    email,
			ResponseType: mode,
		})

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, result.Answer)
		if len(result.Citations) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Sources:")
			for _, c := range result.Citations {
				line := fmt.Sprintf("[%d] %s - %s (%s)", c.ID, c.Title, c.Section, c.Source)
				if c.URL != nil {
					line += " " + *c.URL
				}
				fmt.Fprintln(out, line)
			}
		}
		if result.ChatID != "" {
			fmt.Fprintf(out, "\nsession %s, chat %s\n", result.SessionID, result.ChatID)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringP("session", "s", "", "session id (random when empty)")
	askCmd.Flags().StringP("mode", "m", string(types.RESPONSE_MODE_SUMMARY), "response mode: summary or detailed")
	askCmd.Flags().String("email", "", "user email to record with the interaction")
}
