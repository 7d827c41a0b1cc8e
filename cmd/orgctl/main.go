// Command orgctl is a thin operator CLI over the session/replay/
// snapshot/drift runtime: it contains no transition logic of its own,
// only wiring over the public packages.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/orgforge/orgkernel/drift"
	"github.com/orgforge/orgkernel/engine"
	"github.com/orgforge/orgkernel/eventstore"
	"github.com/orgforge/orgkernel/replay"
	"github.com/orgforge/orgkernel/snapshot"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "orgctl",
		Short:         "Operate on organizational-simulation event-sourced sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReplayCmd(), newVerifyCmd(), newSnapshotCmd(), newDriftCmd())
	return root
}

func loadSessionEvents(sessionDir string) ([]engine.EventEnvelope, error) {
	store, err := eventstore.Open(filepath.Join(sessionDir, "events.log"))
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	events, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	return events, nil
}

func newReplayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <session-dir>",
		Short: "Rebuild state from a session's event log and print its canonical hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadSessionEvents(args[0])
			if err != nil {
				return err
			}
			state, hash, err := replay.Rebuild(events, nil)
			if err != nil {
				return fmt.Errorf("replay: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hash: %s\nroles: %d\nstructural_debt: %d\n",
				hash, len(state.Roles), state.StructuralDebt)
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <session-dir>",
		Short: "Replay the session's event log twice and confirm both hashes agree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := loadSessionEvents(args[0])
			if err != nil {
				return err
			}
			if err := replay.VerifyDeterminism(events); err != nil {
				return fmt.Errorf("verify: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deterministic: ok")
			return nil
		},
	}
}

func newSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot <session-dir>",
		Short: "Force a runtime snapshot of the session's current replayed state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessionDir := args[0]
			events, err := loadSessionEvents(sessionDir)
			if err != nil {
				return err
			}
			state, hash, err := replay.Rebuild(events, nil)
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			var sequence uint64
			if len(events) > 0 {
				sequence = events[len(events)-1].Sequence
			}
			path, err := snapshot.SaveRuntime(filepath.Join(sessionDir, "snapshots"), sequence, state)
			if err != nil {
				return fmt.Errorf("snapshot: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nhash: %s\n", path, hash)
			return nil
		},
	}
}

func newDriftCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drift <session-dir-a> <session-dir-b>",
		Short: "Print a drift report comparing two sessions' current replayed states",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eventsA, err := loadSessionEvents(args[0])
			if err != nil {
				return err
			}
			eventsB, err := loadSessionEvents(args[1])
			if err != nil {
				return err
			}
			stateA, _, err := replay.Rebuild(eventsA, nil)
			if err != nil {
				return fmt.Errorf("drift: replay %s: %w", args[0], err)
			}
			stateB, _, err := replay.Rebuild(eventsB, nil)
			if err != nil {
				return fmt.Errorf("drift: replay %s: %w", args[1], err)
			}

			report := drift.Compare(stateA, stateB)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}
}
