package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nainya/promptvault/pkg/diff"
)

var diffCmd = &cobra.Command{
	Use:   "diff OLD.yaml NEW.yaml",
	Short: "Diff two prompt snapshots",
	Long: `Diff two prompt snapshot files. A snapshot file is YAML:

  title: Greeting
  body: Hello {name}
  tags: [support]
  params:
    - key: name
      value: Ada
      default: friend`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		older, err := readSnapshot(cmd, args[0])
		if err != nil {
			return err
		}
		newer, err := readSnapshot(cmd, args[1])
		if err != nil {
			return err
		}
		return output(cmd.OutOrStdout(), diff.Snapshots(older, newer))
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func readSnapshot(cmd *cobra.Command, path string) (diff.Snapshot, error) {
	var snap diff.Snapshot
	text, err := readInput(cmd, path)
	if err != nil {
		return snap, err
	}
	if err := yaml.Unmarshal([]byte(text), &snap); err != nil {
		return snap, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}
