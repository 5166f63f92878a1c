package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/heth-labs/voicegate/pkg/gateway/config"
	"github.com/heth-labs/voicegate/pkg/gateway/twilio"
)

var callCmd = &cobra.Command{
	Use:   "call <number>",
	Short: "Place an outbound call that bridges into the assistant",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		client := twilio.NewClient("", cfg.TwilioAccountSID, cfg.TwilioAuthToken, nil)
		twiml := twilio.OutboundTwiML(cfg.MediaStreamURL(), cfg.TrustedNumber)
		call, err := client.CreateCall(cmd.Context(), cfg.CallerNumber, args[0], twiml)
		if err != nil {
			return fmt.Errorf("place call: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "call %s to %s: %s\n", call.SID, call.To, call.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(callCmd)
}
