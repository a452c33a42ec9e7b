package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/cloudevents"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/logging"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/mongodb"
	"github.com/TGO0427/synercore-import-schedule-sub001/pkg/resilience"

	"github.com/TGO0427/synercore-import-schedule-sub001/internal/application"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/domain"
	mongoRepo "github.com/TGO0427/synercore-import-schedule-sub001/internal/infrastructure/mongodb"
	"github.com/TGO0427/synercore-import-schedule-sub001/internal/infrastructure/reports"
)

// exportFlags holds the export command's flag values
type exportFlags struct {
	Format          string
	Out             string
	GroupBy         string
	Statuses        []string
	Warehouses      []string
	Suppliers       []string
	WeekFrom        int
	WeekTo          int
	IncludeArchived bool

	MongoURI string
	Database string
	Timeout  time.Duration
}

var flgs exportFlags

var rootCmd = &cobra.Command{
	Use:           "reportctl",
	Short:         "reportctl generates shipment reports from the import schedule database",
	Long:          `reportctl connects directly to the import schedule database and renders aggregated shipment reports, bypassing the API. Useful for scheduled exports and ad-hoc analysis.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a shipment report to an xlsx or pdf file",
	RunE:  runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), flgs.Timeout)
	defer cancel()

	// Keep CLI output clean; only warnings and errors reach stderr
	logConfig := logging.DefaultConfig("reportctl")
	logConfig.Level = logging.LevelWarn
	logConfig.Output = os.Stderr
	logger := logging.New(logConfig)

	if flgs.Format != reports.FormatXLSX && flgs.Format != reports.FormatPDF {
		return fmt.Errorf("unknown export format: %s", flgs.Format)
	}

	filter, err := buildFilter()
	if err != nil {
		return err
	}

	mongoConfig := &mongodb.Config{
		URI:            flgs.MongoURI,
		Database:       flgs.Database,
		ConnectTimeout: 10 * time.Second,
		MaxPoolSize:    10,
		MinPoolSize:    1,
	}

	// The database may still be coming up when run from a scheduler;
	// retry the connection with backoff before giving up.
	retryConfig := resilience.DefaultRetryConfig()
	retryConfig.RetryableErrors = func(err error) bool { return true }
	client, err := resilience.RetryWithResult(ctx, retryConfig, func() (*mongodb.Client, error) {
		return mongodb.NewClient(ctx, mongoConfig)
	})
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer client.Close(ctx)

	eventFactory := cloudevents.NewEventFactory(cloudevents.SourceImportSchedule)
	repo := mongoRepo.NewShipmentRepository(client.Database(), eventFactory)
	service := application.NewReportApplicationService(repo, logger)

	report, err := service.BuildReport(ctx, application.ReportQuery{
		Filter:  filter,
		GroupBy: flgs.GroupBy,
	})
	if err != nil {
		return err
	}

	data, _, err := reports.Render(flgs.Format, report)
	if err != nil {
		return err
	}

	out := flgs.Out
	if out == "" {
		out = reports.Filename(flgs.Format, report.GeneratedAt)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d shipments, %d groups)\n",
		out, report.Stats.TotalShipments, len(report.Groups))
	return nil
}

func buildFilter() (domain.ShipmentFilter, error) {
	filter := domain.ShipmentFilter{
		Suppliers:       flgs.Suppliers,
		Warehouses:      flgs.Warehouses,
		IncludeArchived: flgs.IncludeArchived,
	}

	for _, s := range flgs.Statuses {
		status := domain.ShipmentStatus(s)
		if !status.IsValid() {
			return filter, fmt.Errorf("invalid shipment status: %s", s)
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	if flgs.WeekFrom > 0 {
		week := flgs.WeekFrom
		filter.WeekFrom = &week
	}
	if flgs.WeekTo > 0 {
		week := flgs.WeekTo
		filter.WeekTo = &week
	}

	return filter, nil
}

func init() {
	exportCmd.Flags().StringVar(&flgs.Format, "format", reports.FormatXLSX, "output format: xlsx or pdf")
	exportCmd.Flags().StringVar(&flgs.Out, "out", "", "output file path (defaults to shipments-<timestamp>.<format>)")
	exportCmd.Flags().StringVar(&flgs.GroupBy, "group-by", "", "group dimension: supplier, warehouse, status, incoterm, forwardingAgent, week")
	exportCmd.Flags().StringSliceVar(&flgs.Statuses, "status", nil, "filter by status (repeatable)")
	exportCmd.Flags().StringSliceVar(&flgs.Warehouses, "warehouse", nil, "filter by receiving warehouse (repeatable)")
	exportCmd.Flags().StringSliceVar(&flgs.Suppliers, "supplier", nil, "filter by supplier (repeatable)")
	exportCmd.Flags().IntVar(&flgs.WeekFrom, "week-from", 0, "lower week number bound")
	exportCmd.Flags().IntVar(&flgs.WeekTo, "week-to", 0, "upper week number bound")
	exportCmd.Flags().BoolVar(&flgs.IncludeArchived, "include-archived", false, "include archived shipments")

	exportCmd.Flags().StringVar(&flgs.MongoURI, "mongo-uri", getEnv("MONGODB_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	exportCmd.Flags().StringVar(&flgs.Database, "database", getEnv("MONGODB_DATABASE", "import_schedule"), "MongoDB database name")
	exportCmd.Flags().DurationVar(&flgs.Timeout, "timeout", 60*time.Second, "overall command timeout")

	rootCmd.AddCommand(exportCmd)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
