package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	orchestratorx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/agents/orchestrator"
	contractx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/agent/contract"
	configx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/config"
)

type turnSubmitter interface {
	Submit(ctx context.Context, sessionID string, text string, opts orchestratorx.TurnOptions) (orchestratorx.TurnResult, error)
}

func NewChatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the engine on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := configx.New[AppConfig]("APP")
			if err != nil {
				return configError("app", err)
			}

			a, err := buildApp(cmd.Context(), *conf)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					log.Warn().Err(err).Msg("close collaborators")
				}
			}()

			if strings.TrimSpace(sessionID) == "" {
				sessionID = uuid.NewString()
			}
			return runChat(cmd.Context(), a.engine, sessionID, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "session id to continue (new one when empty)")
	return cmd
}

// runChat reads one utterance per line until EOF or "exit". Engine errors
// are printed; only persistence failures end the loop.
func runChat(ctx context.Context, engine turnSubmitter, sessionID string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "session %s\n", sessionID)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		res, err := engine.Submit(ctx, sessionID, line, orchestratorx.TurnOptions{})
		if err != nil {
			if errors.Is(err, contractx.ErrPersistence) || errors.Is(err, contractx.ErrCancelled) {
				return err
			}
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(out, "[%s] %s\n", res.Destination, res.Reply)
	}
}
