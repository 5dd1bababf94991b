package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/connectivity"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/device"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/discovery"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/display"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/portal"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/preflight"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/provision"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/schedule"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/timesync"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/ui"
)

const cacheFile = "schedule.db"

// Global flags
var (
	optionsPath string
	logLevel    string
	dataDir     string
)

// Command flags
var (
	simOffline     bool
	portalDuration time.Duration
	scanTimeout    time.Duration
	feedURL        string
	useCache       bool
	setSSID        string
	setPassword    string
	setFeedURL     string
	setTimezone    string
	portalURL      string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&optionsPath, "config", "", "Options file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory holding the configuration record and schedule cache")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(portalCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(doctorCmd)
}

// runCmd is the daemon
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the display daemon",
	Long: `Run the display lifecycle until interrupted.

The daemon loads the stored configuration, joins the WiFi network, keeps the
clock in sync and shows the prayer times with a countdown to the next one.
When the network cannot be joined after three attempts it opens a setup
portal on its own access point for five minutes.`,
	Example: `  # Run on the board with the defaults
  sudo vakitd run

  # Try the whole lifecycle on a laptop with a simulated radio
  vakitd run --config sim.yaml --log-level info

  # Simulate an unreachable network to exercise the setup portal
  vakitd run --config sim.yaml --sim-offline`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&simOffline, "sim-offline", false, "With radio: sim, make the stored network unreachable")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	opts, dir, err := loadOptions()
	if err != nil {
		return err
	}

	store := config.NewStore(dir)
	stored, _ := store.Load()

	screen, err := openScreen(opts)
	if err != nil {
		return err
	}
	defer screen.Close()

	station, ap := openRadio(opts, stored, simOffline)
	publisher, closeTelemetry := openTelemetry(opts)
	defer closeTelemetry()

	portalCfg := portal.DefaultConfig()
	portalCfg.Addr = opts.PortalAddr
	srv, err := portal.New(portalCfg, store, screen)
	if err != nil {
		return fmt.Errorf("failed to create portal: %w", err)
	}

	cfg := device.DefaultConfig()
	cfg.Connectivity.Timings = connectivity.DefaultTimings().With(opts.Timings)
	cfg.Connectivity.APSSID = opts.APSSID
	cfg.Connectivity.Telemetry = publisher
	if opts.NTPInterval > 0 {
		cfg.NTPInterval = opts.NTPInterval
	}
	if opts.FeedInterval > 0 {
		cfg.FeedInterval = opts.FeedInterval
	}

	clock := timesync.NewClock(opts.NTPServer)
	svc := device.Services{
		Store:   store,
		Portal:  srv,
		Clock:   clock,
		Fetcher: schedule.NewFetcher(clock.Now),
	}

	// A nil *schedule.Cache must not end up in the interface.
	cache, err := schedule.OpenCache(filepath.Join(dir, cacheFile))
	if err != nil {
		logging.Warn("Schedule cache unavailable", zap.Error(err))
	} else {
		defer cache.Close()
		svc.Cache = cache
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info("Starting daemon",
		zap.String("data_dir", dir),
		zap.String("radio", opts.Radio),
		zap.String("display", opts.Display),
		zap.Stringer("config", stored),
	)

	dev := connectivity.Device{Station: station, AP: ap, Reporter: screen}
	err = device.New(cfg, dev, svc).Run(ctx)
	if errors.Is(err, context.Canceled) {
		logging.Info("Daemon stopped")
		return nil
	}
	return err
}

// portalCmd runs one portal session without touching the radio
var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Serve one setup portal session",
	Long: `Serve the setup form on the portal address for one session.

The radio is left alone, so the form is reachable on whatever network this
machine is already on. The session ends after a valid submission, when the
duration elapses, or on interrupt.`,
	Example: `  # Serve the form on port 8080 for two minutes
  vakitd portal --config dev.yaml --duration 2m`,
	RunE: runPortal,
}

func init() {
	portalCmd.Flags().DurationVar(&portalDuration, "duration", connectivity.DefaultTimings().PortalDuration, "Session duration")
}

func runPortal(cmd *cobra.Command, args []string) error {
	opts, dir, err := loadOptions()
	if err != nil {
		return err
	}
	store := config.NewStore(dir)
	current, _ := store.Load()

	portalCfg := portal.DefaultConfig()
	portalCfg.Addr = opts.PortalAddr
	srv, err := portal.New(portalCfg, store, display.Nop{})
	if err != nil {
		return fmt.Errorf("failed to create portal: %w", err)
	}

	fmt.Println(ui.NewHeader("Setup portal", "vakitd portal",
		ui.Param{Key: "Address", Value: opts.PortalAddr},
		ui.Param{Key: "Duration", Value: portalDuration.String()},
		ui.Param{Key: "Store", Value: store.Path()},
	).String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome := srv.Run(ctx, current, portalDuration)
	switch outcome.Kind {
	case portal.Submitted:
		fmt.Println(ui.NewSuccessResult("Configuration saved").
			AddDetail("Network", outcome.Config.SSID).
			AddDetail("Feed", outcome.Config.FeedURL).
			AddDetail("Timezone", fmt.Sprintf("UTC%+d", outcome.Config.TimezoneOffset)).
			String())
		return nil
	case portal.BindFault:
		fmt.Println(ui.NewFailureResult("Portal could not start", outcome.Err,
			"Ports below 1024 need root or CAP_NET_BIND_SERVICE",
			"Set portal_addr in the options file to another port").String())
		return outcome.Err
	default:
		fmt.Println(ui.NewWarningResult("Session ended without a submission").
			AddDetail("Duration", portalDuration.String()).
			String())
		return nil
	}
}

// configCmd groups the stored configuration commands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or change the stored configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		cfg, found := store.Load()

		result := ui.NewSuccessResult("Stored configuration")
		if !found {
			result = ui.NewWarningResult("No stored configuration, showing defaults")
		}
		fmt.Println(result.
			AddDetail("Path", store.Path()).
			AddDetail("Network", cfg.SSID).
			AddDetail("Password", maskPassword(cfg.Password)).
			AddDetail("Feed", cfg.FeedURL).
			AddDetail("Timezone", fmt.Sprintf("UTC%+d", cfg.TimezoneOffset)).
			String())
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored configuration",
	Long: `Delete the stored configuration record.

The next boot writes the built-in defaults again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		if err := store.Reset(); err != nil {
			return err
		}
		fmt.Println(ui.NewSuccessResult("Configuration reset").AddDetail("Path", store.Path()).String())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change stored configuration values",
	Long: `Change stored configuration values without the portal.

Unset flags keep their stored values. The result is validated the same way
as a portal submission.`,
	Example: `  vakitd config set --ssid HomeNet --password secret123
  vakitd config set --rss-url "http://namazvakti.com/DailyRSS.php?cityID=16741" --tz 3`,
	RunE: runConfigSet,
}

func init() {
	configSetCmd.Flags().StringVar(&setSSID, "ssid", "", "WiFi network name")
	configSetCmd.Flags().StringVar(&setPassword, "password", "", "WiFi password")
	configSetCmd.Flags().StringVar(&setFeedURL, "rss-url", "", "Prayer times feed URL")
	configSetCmd.Flags().StringVar(&setTimezone, "tz", "", "Timezone offset in whole hours")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configResetCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	current, _ := store.Load()

	form := map[string]string{
		config.FieldSSID:           current.SSID,
		config.FieldPassword:       current.Password,
		config.FieldFeedURL:        current.FeedURL,
		config.FieldTimezoneOffset: strconv.Itoa(current.TimezoneOffset),
	}
	flags := cmd.Flags()
	if flags.Changed("ssid") {
		form[config.FieldSSID] = setSSID
	}
	if flags.Changed("password") {
		form[config.FieldPassword] = setPassword
	}
	if flags.Changed("rss-url") {
		form[config.FieldFeedURL] = setFeedURL
	}
	if flags.Changed("tz") {
		form[config.FieldTimezoneOffset] = setTimezone
	}

	cfg, errs := config.ValidateSubmission(form)
	if len(errs) > 0 {
		err := errors.Join(errs...)
		fmt.Println(ui.NewFailureResult("Invalid configuration", err).String())
		return err
	}
	if err := store.Save(cfg); err != nil {
		return err
	}

	fmt.Println(ui.NewSuccessResult("Configuration saved").
		AddDetail("Network", cfg.SSID).
		AddDetail("Feed", cfg.FeedURL).
		AddDetail("Timezone", fmt.Sprintf("UTC%+d", cfg.TimezoneOffset)).
		String())
	return nil
}

// scheduleCmd fetches and prints the schedule as the display would show it
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Fetch and show today's prayer times",
	Long: `Fetch the prayer times feed and render it the way the display does,
with the countdown to the next time underneath.

The feed URL and timezone come from the stored configuration unless
--rss-url is given. The clock is this machine's clock.`,
	Example: `  vakitd schedule
  vakitd schedule --rss-url "http://namazvakti.com/DailyRSS.php?cityID=16741"
  vakitd schedule --cached`,
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&feedURL, "rss-url", "", "Feed URL (defaults to the stored one)")
	scheduleCmd.Flags().BoolVar(&useCache, "cached", false, "Show the cached schedule instead of fetching")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	_, dir, err := loadOptions()
	if err != nil {
		return err
	}
	cfg, _ := config.NewStore(dir).Load()
	url := cfg.FeedURL
	if feedURL != "" {
		url = feedURL
	}
	zone := timesync.Zone(cfg.TimezoneOffset)
	now := func() time.Time { return time.Now().In(zone) }

	cache, err := schedule.OpenCache(filepath.Join(dir, cacheFile))
	if err != nil {
		return err
	}
	defer cache.Close()

	var s *schedule.Schedule
	if useCache {
		cached, ok := cache.Get(url)
		if !ok {
			return fmt.Errorf("no cached schedule for %s", url)
		}
		s = cached
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		s, err = schedule.NewFetcher(now).Fetch(ctx, url)
		if err != nil {
			fmt.Println(ui.NewFailureResult("Feed fetch failed", err,
				"Check the URL in a browser",
				"Use --cached to show the last good schedule").String())
			return err
		}
		if err := cache.Put(url, s); err != nil {
			logging.Warn("Failed to cache schedule", zap.Error(err))
		}
	}

	rows := append([]string{schedule.ShortDate(s.Title)}, s.Lines()...)
	caption := "Invalid times"
	if next, wait, ok := schedule.Next(now(), s.Entries); ok {
		caption = schedule.FormatCountdown(next, wait)
	}
	fmt.Println(ui.RenderPanel(rows, display.Columns, caption))
	return nil
}

// discoverCmd finds portals on the local network
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find setup portals on the local network",
	Long: `Browse mDNS for devices that currently serve a setup portal.

Run this from a machine joined to a device's setup access point, or to any
network where a portal session is running.`,
	Example: `  vakitd discover
  vakitd discover --timeout 10s`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Browse duration")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	fmt.Printf("Browsing for setup portals (timeout: %s)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = scanTimeout
	portals, err := scanner.Scan(context.Background())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(portals) == 0 {
		fmt.Println("No portals found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Join the device's setup network (" + config.DefaultAPSSID + ")")
		fmt.Println("  - The portal only runs after three failed connection attempts")
		fmt.Println("  - Try increasing --timeout")
		return nil
	}

	fmt.Printf("Found %d portal(s):\n\n", len(portals))
	for i, p := range portals {
		fmt.Printf("%d. %s\n", i+1, p)
		fmt.Printf("   Open:    %s\n", p.URL())
		if p.Session != "" {
			fmt.Printf("   Session: %s\n", p.Session)
		}
		fmt.Println()
	}
	return nil
}

// provisionCmd submits a configuration to a device in setup mode
var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Configure a device in setup mode from this machine",
	Long: `Submit a configuration to a device's setup portal.

Join the device's setup network first. Without --portal the portal is found
over mDNS. The device restarts its lifecycle as soon as it has saved the
submission.`,
	Example: `  vakitd provision --ssid HomeNet --password secret123
  vakitd provision --portal http://192.168.4.1/ --ssid HomeNet --password secret123 --tz 3`,
	RunE: runProvision,
}

func init() {
	provisionCmd.Flags().StringVar(&portalURL, "portal", "", "Portal URL (skips discovery)")
	provisionCmd.Flags().StringVar(&setSSID, "ssid", "", "WiFi network name")
	provisionCmd.Flags().StringVar(&setPassword, "password", "", "WiFi password")
	provisionCmd.Flags().StringVar(&setFeedURL, "rss-url", config.DefaultFeedURL, "Prayer times feed URL")
	provisionCmd.Flags().StringVar(&setTimezone, "tz", strconv.Itoa(config.DefaultTimezoneOffset), "Timezone offset in whole hours")
	provisionCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultScanTimeout, "Discovery duration")
}

func runProvision(cmd *cobra.Command, args []string) error {
	cfg, errs := config.ValidateSubmission(map[string]string{
		config.FieldSSID:           setSSID,
		config.FieldPassword:       setPassword,
		config.FieldFeedURL:        setFeedURL,
		config.FieldTimezoneOffset: setTimezone,
	})
	if len(errs) > 0 {
		err := errors.Join(errs...)
		fmt.Println(ui.NewFailureResult("Invalid configuration", err).String())
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	target := portalURL
	if target == "" {
		scanner := discovery.NewScanner()
		scanner.Timeout = scanTimeout
		fmt.Printf("Browsing for setup portals (timeout: %s)...\n", scanTimeout)
		portals, err := scanner.Scan(ctx)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		if len(portals) == 0 {
			return errors.New("no portal found; join the device's setup network or pass --portal")
		}
		if len(portals) > 1 {
			fmt.Printf("Found %d portals, using %s\n", len(portals), portals[0])
		}
		target = portals[0].URL()
	}

	client := provision.NewClient(target)
	if err := client.Ping(ctx); err != nil {
		fmt.Println(ui.NewFailureResult("Portal unreachable", err,
			"Check that this machine is on the device's setup network").String())
		return err
	}
	if err := client.Submit(ctx, cfg); err != nil {
		fmt.Println(ui.NewFailureResult("Submission failed", err).String())
		return err
	}

	fmt.Println(ui.NewSuccessResult("Device configured").
		AddDetail("Portal", target).
		AddDetail("Network", cfg.SSID).
		AddDetail("Feed", cfg.FeedURL).
		AddDetail("Timezone", fmt.Sprintf("UTC%+d", cfg.TimezoneOffset)).
		String())
	return nil
}

// doctorCmd checks the board before running the daemon
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that this machine can run the daemon",
	Long: `Check the prerequisites of the daemon: the radio tool, the portal
listener, the data directory, the display device and the network services.`,
	RunE: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	opts, dir, err := loadOptions()
	if err != nil {
		return err
	}

	result := preflight.Run(context.Background(), opts, dir)
	fmt.Print(preflight.FormatReport(result))
	if !result.AllAvailable {
		return errors.New("preflight checks failed")
	}
	return nil
}

func openStore() (*config.Store, error) {
	_, dir, err := loadOptions()
	if err != nil {
		return nil, err
	}
	return config.NewStore(dir), nil
}

func maskPassword(p string) string {
	if p == "" {
		return "(empty)"
	}
	return fmt.Sprintf("%d characters", len(p))
}
