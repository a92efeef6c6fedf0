package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/facecam/internal/panel"
	"github.com/kozaktomas/facecam/internal/session"
)

var snapCmd = &cobra.Command{
	Use:   "snap",
	Short: "Capture a single annotated still without the console",
	Long: `Start the camera, wait for a detection batch that contains at least one
face (or until --wait elapses), capture a still with the detections burned
in, and print the identified people.

Example:
  facecam snap --wait 5s --out still.jpg
  facecam snap --save`,
	Args: cobra.NoArgs,
	RunE: runSnap,
}

func init() {
	rootCmd.AddCommand(snapCmd)
	snapCmd.Flags().Duration("wait", 10*time.Second, "How long to wait for a face before capturing anyway")
	snapCmd.Flags().String("out", "", "Write the annotated still to this file")
	snapCmd.Flags().Bool("save", false, "Save the still through the recognition service")
}

func runSnap(cmd *cobra.Command, args []string) error {
	wait := mustGetDuration(cmd, "wait")
	outPath := mustGetString(cmd, "out")
	save := mustGetBool(cmd, "save")

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal, closeJournal, err := openJournal(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeJournal()

	sess, err := newSession(cfg, logger, journal)
	if err != nil {
		return err
	}
	defer sess.Close()

	events := sess.Subscribe()
	defer sess.Unsubscribe(events)

	if err := sess.StartCamera(ctx); err != nil {
		return fmt.Errorf("could not start camera: %w", err)
	}
	fmt.Printf("Camera started (%s), waiting up to %s for a face...\n", cfg.Camera.Source, wait)

	if err := waitForFaces(ctx, sess, events, wait); err != nil {
		return err
	}

	if err := captureWhenReady(ctx, sess); err != nil {
		return err
	}
	captured := sess.Captured()
	fmt.Printf("Captured %s with %d face(s)\n", captured.ID, len(captured.Faces))

	if outPath != "" {
		if err := os.WriteFile(outPath, captured.JPEG, 0600); err != nil {
			return fmt.Errorf("could not write still: %w", err)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", outPath, len(captured.JPEG))
	}

	if err := sess.ConfirmCapture(); err != nil {
		return err
	}
	view := sess.Snapshot()
	if view.Panel.Visible {
		fmt.Println()
		if err := panel.WriteRows(os.Stdout, view.Panel.Rows); err != nil {
			return err
		}
		fmt.Println()
	} else {
		fmt.Println("No known people in the still")
	}

	if save {
		path, err := sess.SaveCapture(ctx)
		if err != nil {
			return fmt.Errorf("could not save capture: %w", err)
		}
		fmt.Printf("Saved to %s\n", path)
	}
	return nil
}

// waitForFaces blocks until a detection batch with at least one face lands,
// the wait elapses, or ctx is cancelled. Status messages are echoed.
func waitForFaces(ctx context.Context, sess *session.Session, events <-chan session.Event, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	lastStatus := ""
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			fmt.Println("No face detected in time, capturing anyway")
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("session closed")
			}
			switch ev.Type {
			case session.EventStatus:
				if ev.Message != lastStatus {
					fmt.Printf("  %s\n", ev.Message)
					lastStatus = ev.Message
				}
			case session.EventOverlay:
				if len(sess.Snapshot().Overlay) > 0 {
					return nil
				}
			}
		}
	}
}

// captureWhenReady retries CapturePhoto until the first frame has landed.
func captureWhenReady(ctx context.Context, sess *session.Session) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for attempts := 0; ; attempts++ {
		err := sess.CapturePhoto()
		if !errors.Is(err, session.ErrNotReady) || attempts >= 100 {
			if err != nil {
				return fmt.Errorf("could not capture photo: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
