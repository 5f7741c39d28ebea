package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"easyics/internal/config"
	"easyics/internal/ics"
	appLog "easyics/internal/log"
	"easyics/internal/model"
	"easyics/internal/parser"
	"easyics/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values before config loading.
type flagConfig struct {
	configPath string
	listen     string
	parse      string
	timezone   string
	icsOut     string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("easyics starting", "version", version)

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"natural_language", conf.NaturalLanguageEnabled(),
		"languages", conf.Languages,
		"default_duration_minutes", conf.DefaultDurationMinutes,
		"reminder_minutes", conf.ReminderMinutes,
		"one_shot", flags.parse != "",
	)

	p, err := parser.NewFromConfig(conf)
	if err != nil {
		appLog.Error("failed to build parser", err, "timezone", conf.Timezone)
		os.Exit(1)
	}

	if flags.parse != "" {
		if err := runOnce(conf, p, flags); err != nil {
			appLog.Error("parse failed", err, "input", flags.parse)
			os.Exit(1)
		}
		return
	}

	svc, err := web.NewService(conf, p)
	if err != nil {
		appLog.Error("failed to build service", err)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := web.Serve(ctx, conf, svc); err != nil {
		appLog.Error("HTTP server failed", err)
		os.Exit(1)
	}
	appLog.Info("easyics exiting")
}

// runOnce parses one input, then prints events JSON or writes an ICS file.
func runOnce(conf *config.Config, p *parser.Parser, flags flagConfig) error {
	text, err := readInput(flags.parse)
	if err != nil {
		return err
	}

	events, err := p.Parse(text, flags.timezone)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		appLog.Warn("no events could be extracted", "input", flags.parse)
	}

	if flags.icsOut != "" {
		return writeICS(conf, events, flags.icsOut)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(web.ToDTOs(events))
}

func readInput(path string) (string, error) {
	if path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func writeICS(conf *config.Config, events []model.Event, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	opts := ics.WriteOptions{
		ProductID:    conf.Calendar.ProductID,
		CalendarName: conf.Calendar.Name,
	}
	if err := ics.Write(f, events, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	appLog.Info("calendar written", "path", path, "event_count", len(events))
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/easyics/config.yaml", "Path to config file (.yaml or .toml)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.parse, "parse", "", "Parse this file (or - for stdin), print events and exit")
	flag.StringVar(&cfg.timezone, "tz", "", "IANA timezone for -parse (defaults to config timezone)")
	flag.StringVar(&cfg.icsOut, "ics", "", "With -parse, write an ICS file here instead of printing JSON")

	flag.Parse()

	return cfg
}
