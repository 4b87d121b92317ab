package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.klb.dev/cliphist/internal/logging"
)

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPHIST_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLIPHIST_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("cliphist")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/cliphist/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "cliphist"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLIPHIST")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// watchConfig calls onChange whenever the config file in use is rewritten.
// It does nothing when no config file was found.
func watchConfig(v *viper.Viper, onChange func()) {
	path := v.ConfigFileUsed()
	if path == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		slog.Info("config file changed", "path", e.Name, "op", e.Op.String())
		onChange()
	})
	v.WatchConfig()
	slog.Debug("watching config file", "path", path)
}

// addLoggingFlags adds the standard logging flags to a command.
func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
}

// addConfigFlag adds the --config flag to a command.
func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// addClientFlags adds the flags every daemon-talking sub-command needs.
func addClientFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("server", "", "remote daemon address host:port (default: local socket)")
	f.String("token", "", "shared secret for the remote daemon")
	f.String("source", defaultSource(), "identifier sent with requests")
	f.Duration("timeout", defaultTimeout, "request timeout")
	addConfigFlag(cmd)
}

// setupLogging reads logging flags from viper and configures slog to write
// to the command's stderr.
func setupLogging(cmd *cobra.Command, v *viper.Viper) {
	w := cmd.ErrOrStderr()
	interactive := v.GetBool("no-background") || logging.IsTTY(w)
	resolveLogging(w, interactive, v.GetString("log-format"), v.GetString("log-level"))
}
