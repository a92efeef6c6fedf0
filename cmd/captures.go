package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/database"
	"github.com/kozaktomas/facecam/internal/database/postgres"
)

var capturesCmd = &cobra.Command{
	Use:   "captures",
	Short: "List saved captures from the journal",
	Long: `List the most recent saved captures recorded in the PostgreSQL capture
journal. Requires DATABASE_URL.

With --status, print the journal's schema migrations instead.`,
	Args: cobra.NoArgs,
	RunE: runCaptures,
}

func init() {
	rootCmd.AddCommand(capturesCmd)
	capturesCmd.Flags().IntP("limit", "n", 20, "Maximum number of captures to list")
	capturesCmd.Flags().String("person", "", "Only list captures showing this person (full name)")
	capturesCmd.Flags().Bool("status", false, "Show applied and pending schema migrations")
}

func runCaptures(cmd *cobra.Command, args []string) error {
	limit := mustGetInt(cmd, "limit")
	person := mustGetString(cmd, "person")
	showStatus := mustGetBool(cmd, "status")
	if limit <= 0 {
		return errors.New("--limit must be positive")
	}

	cfg := config.Load()
	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg, cfg.Log.NewLogger())
	if err != nil {
		return err
	}
	defer pool.Close()

	if showStatus {
		status, err := pool.Status(ctx)
		if err != nil {
			return fmt.Errorf("could not read schema status: %w", err)
		}
		writeSchemaStatus(os.Stdout, status)
		return nil
	}

	journal := postgres.NewCaptureRepository(pool)
	total, err := journal.Count(ctx)
	if err != nil {
		return fmt.Errorf("could not count captures: %w", err)
	}
	var records []database.CaptureRecord
	if person != "" {
		records, err = journal.ListByPerson(ctx, person, limit)
	} else {
		records, err = journal.List(ctx, limit)
	}
	if err != nil {
		return fmt.Errorf("could not list captures: %w", err)
	}

	if person != "" {
		fmt.Printf("Captures: %d (showing %d with %s)\n\n", total, len(records), person)
	} else {
		fmt.Printf("Captures: %d (showing %d)\n\n", total, len(records))
	}
	for _, rec := range records {
		people := "-"
		if len(rec.People) > 0 {
			people = strings.Join(rec.People, ", ")
		}
		fmt.Printf("%s  %s  faces=%d  %s\n", rec.SavedAt.Local().Format("2006-01-02 15:04:05"), rec.ID, rec.FaceCount(), rec.StoragePath)
		fmt.Printf("    people: %s\n", people)
	}
	return nil
}

func writeSchemaStatus(w io.Writer, status postgres.SchemaStatus) {
	fmt.Fprintf(w, "Schema migrations: %d applied, %d pending\n\n", len(status.Applied), len(status.Pending))
	for _, m := range status.Applied {
		fmt.Fprintf(w, "  applied  %s  %s\n", m.Version, m.AppliedAt.Local().Format("2006-01-02 15:04:05"))
	}
	for _, v := range status.Pending {
		fmt.Fprintf(w, "  pending  %s\n", v)
	}
	for _, v := range status.Unknown {
		fmt.Fprintf(w, "  unknown  %s (not part of this build)\n", v)
	}
}
