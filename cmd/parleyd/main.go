package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/matheus3301/parley/internal/config"
	"github.com/matheus3301/parley/internal/daemon"
	"github.com/matheus3301/parley/internal/profile"
	"go.uber.org/fx"
	"go.uber.org/zap/zapcore"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	listenFlag := flag.String("listen", "", "listen address, host:port or unix:///path (overrides config)")
	logLevelFlag := flag.String("log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	cfg, err := config.LoadEnv(profile.ConfigPath(), profile.EnvPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	profileName := *profileFlag
	if profileName == "" {
		profileName = cfg.DefaultProfile
	}
	if profileName == "" {
		profileName = profile.DefaultName
	}
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level, err := zapcore.ParseLevel(*logLevelFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	app := fx.New(
		daemon.Module(daemon.Params{
			Profile:  profileName,
			Config:   cfg,
			LogLevel: level,
			Listen:   *listenFlag,
		}),
	)

	app.Run()
}
