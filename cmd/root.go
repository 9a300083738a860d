// Package cmd holds the chative command line: an HTTP server and a terminal
// chat over the same dispatch engine.
package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	configx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/config"
	logx "github.com/tanpawarit/Chative-Multi-Route-Dialogue/pkg/logger"
)

func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "chative",
		Short:         "Multi-route dialogue engine",
		Long:          `Routes each utterance to sql, rag, action or default handling and records the conversation per session.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configx.SetEnvFile(envFile)
			logCfg, err := configx.New[logx.Config]("LOG")
			if err != nil {
				return configError("logger", err)
			}
			logx.Init(*logCfg)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env", "", "path to .env file")

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewChatCmd())
	return root
}

func Execute() error {
	err := NewRootCmd().Execute()
	if err != nil {
		log.Error().Err(err).Msg("chative exited")
	}
	return err
}
