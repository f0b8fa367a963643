package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/preprocess"
)

func (c *cli) newEnrollCmd() *cobra.Command {
	var name, imagePath string

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Enroll the single face in an image under a name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := domain.ValidateName(name); err != nil {
				return err
			}
			frame, err := readFrame(imagePath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := c.engine.Models.Initialize(ctx); err != nil {
				return err
			}
			if err := c.engine.Service.Enroll(ctx, name, frame); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "enrolled %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "identity name (letters, digits and spaces)")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to a JPEG or PNG with exactly one face")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func (c *cli) newRemoveCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove an enrolled face",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.engine.Service.Remove(cmd.Context(), name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "identity name to remove")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (c *cli) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the names enrolled in the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := c.engine.Backend.ListNames(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintf(out, "No faces enrolled for %s.\n", c.cfg.Username)
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func (c *cli) newRecognizeCmd() *cobra.Command {
	var imagePath string

	cmd := &cobra.Command{
		Use:   "recognize",
		Short: "Match every face in an image against the enrolled faces",
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := readFrame(imagePath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if _, err := c.engine.Start(ctx, nil); err != nil {
				return err
			}

			rec, err := c.engine.Service.Recognize(ctx, frame)
			if err != nil {
				return err
			}
			return printRecognition(cmd, rec)
		},
	}

	cmd.Flags().StringVar(&imagePath, "image", "", "path to a JPEG or PNG")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

func (c *cli) newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Load every enrolled embedding from the backend and report the count",
		RunE: func(cmd *cobra.Command, args []string) error {
			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(cmd.ErrOrStderr()),
				progressbar.OptionSetDescription("Syncing faces"),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("faces"),
				progressbar.OptionShowElapsedTimeOnFinish(),
			)

			report, err := c.engine.Service.Sync(cmd.Context(), func(name string, err error) {
				_ = bar.Add(1)
			})
			_ = bar.Finish()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "\nloaded %d faces in %s\n", report.Loaded, report.Duration.Round(time.Millisecond))
			for _, name := range report.Skipped {
				fmt.Fprintf(out, "skipped %s\n", name)
			}
			return nil
		},
	}
}

func printRecognition(cmd *cobra.Command, rec domain.Recognition) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d faces detected, %d matched in %dms\n", rec.Detections, len(rec.Matches), rec.LatencyMs)
	if len(rec.Matches) == 0 {
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tSCORE\tBOX")
	for _, m := range rec.Matches {
		fmt.Fprintf(w, "%s\t%.3f\t(%d,%d)-(%d,%d)\n", m.Name, m.Score, m.Box.Left, m.Box.Top, m.Box.Right, m.Box.Bottom)
	}
	return w.Flush()
}

func readFrame(path string) (domain.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Frame{}, fmt.Errorf("read image: %w", err)
	}
	return preprocess.DecodeFrame(data)
}
