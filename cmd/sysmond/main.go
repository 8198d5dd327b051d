package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/halvard/sysmond/internal/config"
	"codeberg.org/halvard/sysmond/internal/control"
	"codeberg.org/halvard/sysmond/internal/errors"
	"codeberg.org/halvard/sysmond/internal/history"
	"codeberg.org/halvard/sysmond/internal/logger"
	"codeberg.org/halvard/sysmond/internal/monitor"
	"codeberg.org/halvard/sysmond/internal/pid"
	"codeberg.org/halvard/sysmond/internal/proc"
	"codeberg.org/halvard/sysmond/internal/scheduler"
	"codeberg.org/halvard/sysmond/internal/sysinfo"
	"codeberg.org/halvard/sysmond/internal/telemetry"
)

const stopTimeout = 10 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load(os.Args[1:])
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.LogLevel, cfg.Debug, cfg.Verbose, logger.IsService())
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		if errors.CodeOf(err) == errors.ErrAlreadyRunning {
			logger.Fatal().Str("pid_file", pid.Path()).Msg("another instance is already running")
		}
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer pid.Remove()

	source := sysinfo.NewSource()
	defer source.Close()

	collector, err := telemetry.NewService(cfg.TelemetryConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer collector.Close()

	buffer := history.New(cfg.HistoryCapacity())
	sched := scheduler.New()

	mon := monitor.New(cfg, source, buffer, collector, sched)
	mon.OnReading(reportReading)
	mon.OnProcesses(reportProcesses)

	logControlSurfaces()

	if !mon.Start() {
		logger.Fatal().Msg("failed to start collection tasks")
	}
	logger.Info().
		Int("interval", cfg.Interval).
		Int("history_capacity", buffer.Cap()).
		Bool("telemetry", cfg.Telemetry).
		Msg("Monitoring started")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")

	if !mon.Stop(stopTimeout) {
		logger.Warn().Msg("collection tasks did not stop cleanly")
	}
}

// reportReading is the console observer: one summary line per cycle, with
// warnings when usage crosses the configured thresholds.
func reportReading(reading sysinfo.Reading) {
	event := logger.Info()
	switch {
	case reading.CPUPercent() >= cfg.Alerts.CPUCrit || reading.RAMPercent() >= cfg.Alerts.RAMCrit:
		event = logger.Error()
	case reading.CPUPercent() >= cfg.Alerts.CPUWarn || reading.RAMPercent() >= cfg.Alerts.RAMWarn:
		event = logger.Warn()
	}

	event.
		Float64("cpu_percent", reading.CPUPercent()).
		Float64("ram_percent", reading.RAMPercent()).
		Float64("upload_bps", reading.UploadBytesPerSec()).
		Float64("download_bps", reading.DownloadBytesPerSec()).
		Int("gpus", len(reading.GPUs)).
		Int("fans", len(reading.Sensors.Fans)).
		Msg("reading")
}

func reportProcesses(infos []proc.Info) {
	if len(infos) == 0 {
		return
	}

	top := infos[0]
	logger.Debug().
		Int("processes", len(infos)).
		Int32("top_pid", top.PID).
		Str("top_name", top.Name).
		Float64("top_cpu_percent", top.CPUPercent).
		Msg("process table refreshed")
}

// logControlSurfaces reports which control backends this machine exposes,
// so a missing msi-ec module or OpenRGB server shows up at startup instead
// of on first use.
func logControlSurfaces() {
	helper := control.NewHelper(cfg.HelperPath)

	power := control.NewPower(helper, cfg.UsePkexec)
	if info := power.Governors(); info.Current != "" {
		logger.Info().
			Str("governor", info.Current).
			Str("available", strings.Join(info.Available, " ")).
			Msg("cpufreq control available")
	}

	ec := control.NewEC(helper, cfg.UsePkexec)
	if ec.Available() {
		info := ec.Info()
		logger.Info().
			Str("fan_mode", info.FanMode).
			Str("shift_mode", info.ShiftMode).
			Str("cooler_boost", info.CoolerBoost).
			Msg("msi-ec control available")
	}

	if cfg.RGB {
		rgb := control.NewRGB(cfg.RGBAddress)
		logger.Info().
			Bool("available", rgb.Available()).
			Str("address", cfg.RGBAddress).
			Msg("OpenRGB probe")
	}

	if len(cfg.Profiles) > 0 {
		fans := control.NewFans(helper, cfg.UsePkexec)
		profiles := control.NewProfiles(power, fans, cfg.Profiles)
		logger.Info().
			Str("profiles", strings.Join(profiles.Names(), " ")).
			Msg("configured profiles")
	}
}
