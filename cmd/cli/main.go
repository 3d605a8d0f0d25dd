package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plakatpatruljen/fieldops/internal/config"
	"github.com/plakatpatruljen/fieldops/pkg/clients/commitclient"
	"github.com/plakatpatruljen/fieldops/pkg/clients/gcsclient"
	"github.com/plakatpatruljen/fieldops/pkg/clients/netprobe"
	"github.com/plakatpatruljen/fieldops/pkg/core/election"
	"github.com/plakatpatruljen/fieldops/pkg/core/geo"
	"github.com/plakatpatruljen/fieldops/pkg/core/model"
	"github.com/plakatpatruljen/fieldops/pkg/core/session"
	"github.com/plakatpatruljen/fieldops/pkg/core/tasks"
	"github.com/plakatpatruljen/fieldops/pkg/core/upload"
	"github.com/plakatpatruljen/fieldops/pkg/imaging"
	"github.com/plakatpatruljen/fieldops/pkg/location"
	"github.com/plakatpatruljen/fieldops/pkg/postgres"
	"github.com/plakatpatruljen/fieldops/pkg/queue"
	"github.com/plakatpatruljen/fieldops/pkg/queuestore"
	"github.com/plakatpatruljen/fieldops/pkg/utils/logging"
)

// App holds the application dependencies
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	ctx    context.Context

	store    *queuestore.BadgerStore
	memStore *queuestore.MemoryStore
	database *postgres.DB
	objects  upload.ObjectStore
}

var (
	env string
	app *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fieldops",
		Short: "Plakatpatruljen field operations CLI",
		Long:  `A CLI tool for campaign poster field work: hanging windows, zone checks, poster logging and the offline retry queue.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initApp()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil {
				if app.store != nil {
					app.store.Close()
				}
				if app.database != nil {
					app.database.Close()
				}
				if app.logger != nil {
					app.logger.Sync()
				}
			}
		},
	}

	// Add persistent environment flag
	rootCmd.PersistentFlags().StringVarP(&env, "env", "e", "", "Environment (required: test, prod, etc.)")
	rootCmd.MarkPersistentFlagRequired("env")

	// Add all commands
	rootCmd.AddCommand(hangingPeriodCmd())
	rootCmd.AddCommand(checkZoneCmd())
	rootCmd.AddCommand(logPosterCmd())
	rootCmd.AddCommand(queueStatusCmd())
	rootCmd.AddCommand(flushQueueCmd())
	rootCmd.AddCommand(claimTaskCmd())
	rootCmd.AddCommand(expireClaimsCmd())
	rootCmd.AddCommand(sessionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// initApp sets up logger and config; heavier clients are opened on demand
func initApp() error {
	var err error
	app = &App{
		ctx: context.Background(),
	}

	app.logger, err = logging.InitLogger(env)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.logger.Info("Starting application", zap.String("environment", env))

	app.logger.Info("Loading configuration")
	app.cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	app.logger.Debug("Configuration loaded successfully")

	return nil
}

// queueStore opens the durable queue store, in memory when no directory is
// configured.
func (a *App) queueStore() (queue.Store, error) {
	if a.cfg.QueueDir == "" {
		if a.memStore == nil {
			a.memStore = queuestore.NewMemory()
		}
		return a.memStore, nil
	}
	if a.store == nil {
		store, err := queuestore.OpenBadger(a.cfg.QueueDir, a.logger)
		if err != nil {
			return nil, err
		}
		a.store = store
	}
	return a.store, nil
}

// db connects to PostgreSQL on first use
func (a *App) db() (*postgres.DB, error) {
	if a.database == nil {
		if a.cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("databaseURL is not configured")
		}
		a.logger.Info("Connecting to database")
		database, err := postgres.NewDB(a.ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(a.ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		a.database = database
	}
	return a.database, nil
}

// committer selects the RPC client when a commit endpoint is configured,
// otherwise the direct-database implementation.
func (a *App) committer() (upload.Committer, error) {
	if a.cfg.CommitBaseURL != "" {
		return commitclient.New(a.cfg.CommitBaseURL, a.cfg.CommitAPIKey, a.logger), nil
	}
	database, err := a.db()
	if err != nil {
		return nil, err
	}
	return database, nil
}

// objectStore opens the photo bucket client on first use
func (a *App) objectStore() (upload.ObjectStore, error) {
	if a.objects == nil {
		client, err := gcsclient.New(a.ctx, a.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		a.objects = client
	}
	return a.objects, nil
}

// buildQueue assembles the offline retry queue from the configured parts
func (a *App) buildQueue() (*queue.Queue, error) {
	store, err := a.queueStore()
	if err != nil {
		return nil, err
	}
	objects, err := a.objectStore()
	if err != nil {
		return nil, err
	}
	committer, err := a.committer()
	if err != nil {
		return nil, err
	}

	return queue.New(
		store,
		netprobe.New(a.cfg.ConnectivityURL, a.logger),
		objects,
		committer,
		a.logger,
		queue.Config{FlushInterval: a.cfg.FlushInterval},
	)
}

func (a *App) electionDate() (time.Time, error) {
	return a.cfg.ElectionDate()
}

// Command definitions

func hangingPeriodCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hangingPeriod",
		Short: "Show the legal hanging window for the configured election",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			electionDate, err := app.electionDate()
			if err != nil {
				return err
			}

			period := election.CalculateHangingPeriod(app.cfg.Election.Type, electionDate)

			now := election.CurrentDanishTime()
			fmt.Printf("\nElection:          %s on %s\n", app.cfg.Election.Type, electionDate.Format("2006-01-02"))
			fmt.Printf("Hanging allowed:   %s\n", period.EarliestHanging.Format("2006-01-02"))
			fmt.Printf("Removal deadline:  %s\n", period.LatestRemoval.Format("2006-01-02"))
			fmt.Printf("Within window now: %v\n", election.IsWithinHangingPeriod(app.cfg.Election.Type, electionDate, now))
			if election.IsRemovalPeriod(electionDate, now) {
				fmt.Printf("Removal period:    %d day(s) left\n", election.DaysUntilRemovalDeadline(electionDate, now))
			}
			fmt.Println()
			return nil
		},
	}
}

func checkZoneCmd() *cobra.Command {
	var zonesFile string

	cmd := &cobra.Command{
		Use:   "checkZone <latitude> <longitude>",
		Short: "Check which campaign zone contains a coordinate",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lat, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("latitude must be a number: %w", err)
			}
			lon, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("longitude must be a number: %w", err)
			}

			coord := geo.Coordinate{Latitude: lat, Longitude: lon}
			if !geo.IsWithinDenmark(coord) {
				fmt.Println("\nCoordinate is outside Denmark")
			}

			zones, err := loadZones(zonesFile)
			if err != nil {
				return err
			}

			zone := geo.FindContainingZone(coord, zones)
			if zone == nil {
				fmt.Printf("\nNo zone contains %.5f, %.5f (checked %d zones)\n\n", lat, lon, len(zones))
				return nil
			}

			fmt.Printf("\nZone: %s (%s)\n\n", zone.Name, zone.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&zonesFile, "zones", "", "Load zones from a JSON file instead of the database")
	return cmd
}

func loadZones(zonesFile string) ([]geo.Zone, error) {
	if zonesFile != "" {
		data, err := os.ReadFile(zonesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read zones file: %w", err)
		}
		var zones []geo.Zone
		if err := json.Unmarshal(data, &zones); err != nil {
			return nil, fmt.Errorf("failed to parse zones file: %w", err)
		}
		return zones, nil
	}

	database, err := app.db()
	if err != nil {
		return nil, err
	}
	return database.GetCampaignZones(app.ctx, app.cfg.CampaignID)
}

func logPosterCmd() *cobra.Command {
	var (
		lat, lon  float64
		address   string
		action    string
		zonesFile string
	)

	cmd := &cobra.Command{
		Use:   "logPoster <claim_id> <photo_path>",
		Short: "Record one poster action with photo evidence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			claimID, photoPath := args[0], args[1]

			actionType := model.ActionType(action)
			if !actionType.IsValid() {
				return fmt.Errorf("invalid action type %q", action)
			}

			electionDate, err := app.electionDate()
			if err != nil {
				return err
			}
			coord := geo.Coordinate{Latitude: lat, Longitude: lon}
			isWithinTime := election.IsWithinHangingPeriod(
				app.cfg.Election.Type, electionDate, election.CurrentDanishTime())

			isInZone := true
			if zonesFile != "" {
				zones, err := loadZones(zonesFile)
				if err != nil {
					return err
				}
				isInZone = geo.FindContainingZone(coord, zones) != nil
			}

			// With a direct database connection the claim is loaded up front so
			// an offline queue outcome can still show updated local counters.
			var claim *model.TaskClaim
			if app.cfg.DatabaseURL != "" {
				database, err := app.db()
				if err != nil {
					return err
				}
				claim, err = database.GetClaim(app.ctx, claimID)
				if err != nil {
					return err
				}
			}

			q, err := app.buildQueue()
			if err != nil {
				return err
			}
			objects, err := app.objectStore()
			if err != nil {
				return err
			}
			committer, err := app.committer()
			if err != nil {
				return err
			}

			pipeline := upload.New(upload.Deps{
				Camera:    imaging.FileCamera{Path: photoPath},
				Processor: imaging.NewProcessor("", app.logger),
				Objects:   objects,
				Committer: committer,
				Pending:   q,
				Logger:    app.logger,
			})

			uploadCtx := upload.Context{
				TaskClaimID: claimID,
				CampaignID:  app.cfg.CampaignID,
				WorkerID:    app.cfg.WorkerID,
				Type:        actionType,
			}
			if claim != nil {
				uploadCtx.CurrentCount = claim.PostersCompleted
				uploadCtx.TargetCount = claim.PosterCount
				uploadCtx.PricePerPoster = claim.PricePerPoster
			}

			outcome := pipeline.CaptureAndUpload(app.ctx, uploadCtx, &coord, address, isInZone, isWithinTime)

			switch outcome.Kind {
			case upload.KindCommitted:
				fmt.Printf("\n✓ Poster logged!\n\n")
				fmt.Printf("Log ID:   %s\n", outcome.LogID)
				fmt.Printf("Count:    %d\n", outcome.NewCount)
				fmt.Printf("Earnings: %.2f kr\n", outcome.NewEarnings)
				if outcome.IsComplete {
					fmt.Printf("Task complete!\n")
				}
			case upload.KindOffline:
				fmt.Printf("\n✓ Offline: poster log queued for retry (%d pending)\n", q.PendingCount())
				if claim != nil {
					tasks.ApplyOfflineDelta(claim, claim.PricePerPoster)
					fmt.Printf("Count:    %d of %d (pending sync)\n", tasks.DisplayedCount(*claim), claim.PosterCount)
					fmt.Printf("Earnings: %.2f kr (pending sync)\n", tasks.DisplayedEarnings(*claim))
				}
			case upload.KindCancelled:
				fmt.Printf("\nCapture cancelled\n")
			case upload.KindFailed:
				return outcome.Err
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of the poster")
	cmd.Flags().Float64Var(&lon, "lon", 0, "Longitude of the poster")
	cmd.Flags().StringVar(&address, "address", "", "Street address of the poster")
	cmd.Flags().StringVar(&action, "action", "hang", "Action type: hang or remove")
	cmd.Flags().StringVar(&zonesFile, "zones", "", "Zones JSON file for the zone compliance check")
	return cmd
}

func queueStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "queueStatus",
		Short: "Show the offline retry queue status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app.queueStore()
			if err != nil {
				return err
			}
			entries, err := store.Load()
			if err != nil {
				return err
			}

			fmt.Printf("\nPending poster logs: %d\n", len(entries))
			for _, entry := range entries {
				marker := ""
				if entry.RetryCount >= queue.DefaultMaxRetries {
					marker = "  [retries exhausted]"
				}
				fmt.Printf("  %s  claim=%s retries=%d queued=%s%s\n",
					entry.ID, entry.Params.TaskClaimID, entry.RetryCount,
					entry.CreatedAt.Format(time.RFC3339), marker)
			}
			fmt.Println()
			return nil
		},
	}
}

func flushQueueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flushQueue",
		Short: "Run one flush pass over the offline retry queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := app.buildQueue()
			if err != nil {
				return err
			}

			stats, err := q.Flush(app.ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Flush complete\n\n")
			fmt.Printf("Attempted: %d\n", stats.Attempted)
			fmt.Printf("Committed: %d\n", stats.Committed)
			fmt.Printf("Failed:    %d\n", stats.Failed)
			fmt.Printf("Skipped:   %d\n", stats.Skipped)
			fmt.Printf("Remaining: %d (%d exhausted)\n\n", q.PendingCount(), q.CappedCount())
			return nil
		},
	}
}

func claimTaskCmd() *cobra.Command {
	var (
		action string
		price  float64
	)

	cmd := &cobra.Command{
		Use:   "claimTask <zone_id> <poster_count>",
		Short: "Claim hang or remove work on a campaign zone",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			posterCount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("poster_count must be a number: %w", err)
			}

			database, err := app.db()
			if err != nil {
				return err
			}

			claim, err := tasks.ClaimTask(app.ctx, database, app.logger, tasks.ClaimTaskParams{
				CampaignID:     app.cfg.CampaignID,
				ZoneID:         args[0],
				WorkerID:       app.cfg.WorkerID,
				Type:           model.ActionType(action),
				PosterCount:    posterCount,
				PricePerPoster: price,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Task claimed!\n\n")
			fmt.Printf("Claim ID:   %s\n", claim.ID)
			fmt.Printf("Expires at: %s\n\n", claim.ExpiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&action, "action", "hang", "Action type: hang or remove")
	cmd.Flags().Float64Var(&price, "price", 0, "Payout per poster in kroner")
	return cmd
}

func expireClaimsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expireClaims",
		Short: "Release stale claims that were never started",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := app.db()
			if err != nil {
				return err
			}

			count, err := tasks.ExpireStaleClaims(app.ctx, database, app.logger)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Released %d stale claim(s)\n\n", count)
			return nil
		},
	}
}

func sessionCmd() *cobra.Command {
	var zonesFile string

	cmd := &cobra.Command{
		Use:   "session <track.jsonl>",
		Short: "Replay a GPS track through a hanging session and report compliance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			electionDate, err := app.electionDate()
			if err != nil {
				return err
			}

			replay, err := location.NewReplay(args[0], 50*time.Millisecond)
			if err != nil {
				return err
			}

			var zone *geo.Polygon
			if zonesFile != "" {
				zones, err := loadZones(zonesFile)
				if err != nil {
					return err
				}
				if len(zones) > 0 {
					zone = &zones[0].GeoJSON
				}
			}

			mode := session.ModeFailOpen
			if app.cfg.StrictCompliance {
				mode = session.ModeStrict
			}

			s := session.New(session.Config{
				Zone:         zone,
				ElectionType: app.cfg.Election.Type,
				ElectionDate: electionDate,
				Mode:         mode,
			}, replay, app.logger)

			if err := s.Start(app.ctx); err != nil {
				return err
			}

			replay.Wait()
			snap := s.Snapshot()
			s.Stop()

			fmt.Printf("\nSession finished\n\n")
			fmt.Printf("In zone:     %v\n", snap.IsInZone)
			fmt.Printf("Within time: %v\n", snap.IsWithinTime)
			if snap.CurrentLocation != nil {
				fmt.Printf("Last fix:    %.5f, %.5f\n", snap.CurrentLocation.Latitude, snap.CurrentLocation.Longitude)
			}
			fmt.Println()
			return nil
		},
	}

	cmd.Flags().StringVar(&zonesFile, "zones", "", "Zones JSON file providing the session geometry")
	return cmd
}
