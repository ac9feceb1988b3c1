// Package cli implements the smsbridge command tree.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/smsbridge/smsbridge/internal/logging"
)

const defaultConfigPath = "smsbridge.yaml"

var (
	cfgFile  string
	logLevel string

	// initialized in PersistentPreRunE
	log *logging.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smsbridge",
		Short: "SMSBridge — SMS carrier adapter for conversational bots",
		Long:  "SMSBridge connects a conversational bot's message bus to an SMS carrier: inbound webhooks become bus messages, outgoing bus events become carrier sends.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				cfgFile = defaultConfigPath
			}
			level := logLevel
			if level == "" {
				level = "info"
			}
			log = logging.New(nil, level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default smsbridge.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}
