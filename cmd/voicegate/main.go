package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "voicegate",
	Short: "Personal voice assistant gateway bridging phone calls to a realtime model",
	Long: `voicegate answers Twilio voice calls, bridges the media stream to the
OpenAI Realtime API, and gives the assistant a closed set of tools for
tasks, calendar, mail, memory, and the local assistant bot.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; production hosts use real environment.
		_ = godotenv.Load()
	},
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("VOICEGATE_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
