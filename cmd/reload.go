package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facecam/internal/config"
)

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Reload known faces on the recognition service",
	Long: `Ask the recognition service to re-read its known faces and print the
names it now recognizes.`,
	Args: cobra.NoArgs,
	RunE: runReload,
}

func init() {
	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	client, err := newRecognizer(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("Reloading faces...\n")
	resp, err := client.ReloadFaces(context.Background())
	if err != nil {
		return fmt.Errorf("could not reload faces: %w", err)
	}

	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
	fmt.Printf("Known faces: %d\n", len(resp.KnownFaces))
	for _, name := range resp.KnownFaces {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}
