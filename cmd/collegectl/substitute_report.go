package main

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/campusdesk/college-admin-api/internal/models"
	"github.com/campusdesk/college-admin-api/internal/service"
	"github.com/campusdesk/college-admin-api/pkg/export"
	"github.com/campusdesk/college-admin-api/pkg/storage"
)

type reportExporter interface {
	ExportReport(ctx context.Context, filter models.SubstituteReportFilter, format export.Format) (*service.ExportDocument, error)
}

type reportStore interface {
	Save(name string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration, now time.Time) ([]string, error)
}

type reportOptions struct {
	from       string
	to         string
	teacherID  string
	format     string
	outDir     string
	pruneAfter time.Duration
}

func substituteReportCmd(a *App) *cobra.Command {
	opts := reportOptions{}
	cmd := &cobra.Command{
		Use:   "substitute-report",
		Short: "Write the substitute assignment report to disk",
		Long:  "Renders assignments for lectures dated within --from/--to (default: this month) as CSV or PDF.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewLocalStorage(opts.outDir)
			if err != nil {
				return err
			}
			written, err := writeSubstituteReport(cmd.Context(), a.container.Substitutes, store, opts, time.Now(), a.logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), written)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "first lecture date, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.to, "to", "", "last lecture date, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.teacherID, "teacher", "", "only assignments involving this teacher")
	cmd.Flags().StringVar(&opts.format, "format", string(export.FormatCSV), "csv or pdf")
	cmd.Flags().StringVar(&opts.outDir, "out", "./reports", "output directory")
	cmd.Flags().DurationVar(&opts.pruneAfter, "prune-after", 0, "delete reports older than this (0 keeps everything)")
	return cmd
}

func writeSubstituteReport(ctx context.Context, exporter reportExporter, store reportStore, opts reportOptions, now time.Time, logger *zap.Logger) (string, error) {
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return "", err
	}
	doc, err := exporter.ExportReport(ctx, models.SubstituteReportFilter{
		StartDate: opts.from,
		EndDate:   opts.to,
		TeacherID: opts.teacherID,
	}, format)
	if err != nil {
		return "", err
	}

	written, err := store.Save(path.Join(now.Format("2006-01"), doc.Filename), doc.Body)
	if err != nil {
		return "", err
	}
	logger.Info("substitute report written", zap.String("path", written), zap.Int("rows", doc.Rows))

	if opts.pruneAfter > 0 {
		removed, err := store.CleanupOlderThan(opts.pruneAfter, now)
		if err != nil {
			return written, err
		}
		if len(removed) > 0 {
			logger.Info("pruned old reports", zap.Strings("files", removed))
		}
	}
	return written, nil
}
