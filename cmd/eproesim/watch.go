package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/Azure/iwlan-eproe/pkg/eproe"
	"github.com/Azure/iwlan-eproe/pkg/eproelog"
	"github.com/Azure/iwlan-eproe/pkg/policy"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a slot alive, hot-reloading carrier overlays as they change on disk",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if cfg.CarrierPolicyDir == "" {
		return fmt.Errorf("--carrier-dir (or EPROE_CARRIER_POLICY_DIR) must be set for watch")
	}

	data, err := os.ReadFile(cfg.DefaultPolicyPath)
	if err != nil {
		return fmt.Errorf("read default policy: %w", err)
	}
	defaultTable, err := policy.Parse(data, true)
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}

	slot := eproe.Default.GetOrCreate(eproe.SlotID(flagSlotID), cfg, defaultTable, noopSubscriber{}, consoleNotifier{})
	defer eproe.Default.Teardown(eproe.SlotID(flagSlotID))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(cfg.CarrierPolicyDir); err != nil {
		return fmt.Errorf("watch carrier dir: %w", err)
	}
	fmt.Println(color.GreenString("watching %s for carrier overlay changes (slot=%s)", cfg.CarrierPolicyDir, flagSlotID))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reloadCarrierOverlay(slot, ev.Name)
			slot.Deliver(policy.CarrierConfigChangedEvent)
			fmt.Println(color.CyanString("  carrier-config-changed delivered"))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			eproelog.Root().Error().Err(err).Msg("carrier watcher")

		case <-sigCh:
			fmt.Println(color.YellowString("shutting down"))
			return nil
		}
	}
}

func reloadCarrierOverlay(slot *eproe.Slot, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		eproelog.Root().Warn().Err(err).Str("path", path).Msg("read carrier overlay")
		return
	}
	table, err := policy.Parse(data, false)
	if err != nil {
		eproelog.Root().Warn().Err(err).Str("path", path).Msg("compile carrier overlay")
		return
	}
	slot.ReloadCarrierPolicies(table)
	fmt.Println(color.GreenString("  reloaded carrier overlay from %s", path))
}
