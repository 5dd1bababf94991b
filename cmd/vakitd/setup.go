package main

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/config"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/display"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/radio"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/telemetry"
)

// loadOptions reads the options file and applies command-line overrides.
// It returns the options and the prepared data directory.
func loadOptions() (config.Options, string, error) {
	opts, err := config.LoadOptions(optionsPath)
	if err != nil {
		return opts, "", err
	}
	if dataDir != "" {
		opts.DataDir = dataDir
	}

	dir, err := opts.ResolveDataDir()
	if err != nil {
		return opts, "", err
	}
	if err := config.EnsureDataDir(dir); err != nil {
		return opts, "", err
	}
	return opts, dir, nil
}

// openScreen builds the display named by opts.Display.
func openScreen(opts config.Options) (*display.Screen, error) {
	switch {
	case opts.Display == "" || opts.Display == "terminal":
		return display.NewScreen(display.NewTerminalSink()), nil
	case opts.Display == "none":
		return display.NewHeadless(), nil
	case strings.HasPrefix(opts.Display, "serial:"):
		sink, err := display.NewSerialSink(strings.TrimPrefix(opts.Display, "serial:"), opts.SerialBaud)
		if err != nil {
			return nil, err
		}
		return display.NewScreen(sink), nil
	default:
		return nil, fmt.Errorf("unknown display %q (use terminal, serial:<device> or none)", opts.Display)
	}
}

// openRadio builds the station and access point. The simulated station can
// reach the stored network unless offline is set.
func openRadio(opts config.Options, stored config.Configuration, offline bool) (radio.Station, radio.AccessPoint) {
	if opts.Radio == "sim" {
		networks := map[string]string{}
		if !offline {
			networks[stored.SSID] = stored.Password
		}
		logging.Info("Using simulated radio", zap.Bool("offline", offline))
		return radio.NewSimStation(networks), radio.NewSimAccessPoint()
	}

	exec := radio.NewExecutor(radio.DefaultConfig(), logging.GetLogger())
	return radio.NewNMStation(exec, opts.StationInterface), radio.NewNMAccessPoint(exec, opts.APInterface)
}

// openTelemetry returns the state event publisher and its cleanup.
func openTelemetry(opts config.Options) (telemetry.Publisher, func()) {
	if opts.MQTTBroker == "" {
		return telemetry.Nop{}, func() {}
	}
	topic := opts.MQTTTopic
	if topic == "" {
		topic = telemetry.DefaultTopic()
	}
	m := telemetry.NewMQTT(opts.MQTTBroker, topic)
	return m, m.Close
}
