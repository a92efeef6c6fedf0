package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facecam/internal/config"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show the recognition service training status",
	Args:  cobra.NoArgs,
	RunE:  runSettings,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	client, err := newRecognizer(cfg)
	if err != nil {
		return err
	}

	settings, err := client.Settings(context.Background())
	if err != nil {
		return fmt.Errorf("could not fetch settings: %w", err)
	}

	trained := "no"
	if settings.IsTrained {
		trained = "yes"
	}
	fmt.Printf("Service:              %s\n", client.BaseURL())
	fmt.Printf("Trained:              %s\n", trained)
	fmt.Printf("Confidence threshold: %.2f\n", settings.ConfidenceThreshold)
	return nil
}
