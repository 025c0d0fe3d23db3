package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pthm/hxwire"
)

func inspectCmd() *cobra.Command {
	var (
		key        string
		configPath string
		attr       string
	)

	cmd := &cobra.Command{
		Use:   "inspect <snapshot|->",
		Short: "Verify and decode a snapshot",
		Long: `Inspect reads a snapshot (JSON, or rendered markup carrying the snapshot
attribute) from a file or stdin, verifies its checksum, opens the sealed
region and prints the result as JSON.

The key comes from --key, else from the config file, else from $HXWIRE_KEY.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := hxwire.Config{Key: key, SnapshotAttr: attr}
			if configPath != "" {
				loaded, err := hxwire.LoadConfig(configPath)
				if err != nil {
					return err
				}
				if key == "" {
					cfg.Key = loaded.Key
				}
				if attr == "" {
					cfg.SnapshotAttr = loaded.SnapshotAttr
				}
			}
			if cfg.Key == "" {
				cfg.Key = os.Getenv(hxwire.KeyEnv)
			}
			if cfg.SnapshotAttr == "" {
				cfg.SnapshotAttr = hxwire.DefaultSnapshotAttr
			}

			raw, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			snap, err := parseSnapshot(raw, cfg.SnapshotAttr)
			if err != nil {
				return err
			}

			keyBytes, err := cfg.KeyBytes()
			if err != nil {
				return err
			}
			enc, err := hxwire.NewEncoder(keyBytes)
			if err != nil {
				return err
			}
			result, err := hxwire.Inspect(enc, snap)
			if err != nil {
				return err
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(result)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "signing key (prefix hex: for hex-encoded keys)")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file")
	cmd.Flags().StringVar(&attr, "attr", "", "snapshot attribute when reading markup")
	return cmd
}

func readInput(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(arg)
}

func parseSnapshot(raw []byte, attr string) (*hxwire.Snapshot, error) {
	raw = bytes.TrimSpace(raw)
	if bytes.HasPrefix(raw, []byte("<")) {
		return hxwire.ExtractSnapshot(string(raw), attr)
	}
	var snap hxwire.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if snap.ServerMemo == nil {
		snap.ServerMemo = hxwire.Memo{}
	}
	return &snap, nil
}
