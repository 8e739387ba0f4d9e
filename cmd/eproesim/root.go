// Command eproesim drives the Error Policy and Retry Orchestration Engine
// outside of the IKEv2 tunnel engine and OS data-service framework it is
// normally wired into — both of those are out of scope for the library
// itself (spec.md §1), so this CLI stands in for them to give the module an
// exercised, runnable entry point.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Azure/iwlan-eproe/pkg/config"
	"github.com/Azure/iwlan-eproe/pkg/eproelog"
)

var (
	flagEnvFile    string
	flagPolicyPath string
	flagCarrierDir string
	flagSlotID     string
)

var rootCmd = &cobra.Command{
	Use:   "eproesim",
	Short: "Drive the error policy and retry orchestration engine outside its host process",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", ".env", "optional .env file for configuration overrides")
	rootCmd.PersistentFlags().StringVar(&flagPolicyPath, "policy", "", "override the default policy asset path")
	rootCmd.PersistentFlags().StringVar(&flagCarrierDir, "carrier-dir", "", "override the carrier policy overlay directory")
	rootCmd.PersistentFlags().StringVar(&flagSlotID, "slot", "sim0", "slot identifier (subscription id)")

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(watchCmd)
}

func loadConfig() config.Config {
	cfg, err := config.Load(flagEnvFile)
	if err != nil {
		eproelog.Root().Warn().Err(err).Msg("config load")
	}
	if flagPolicyPath != "" {
		cfg.DefaultPolicyPath = flagPolicyPath
	}
	if flagCarrierDir != "" {
		cfg.CarrierPolicyDir = flagCarrierDir
	}
	eproelog.SetLevel(cfg.ZerologLevel())
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("eproesim: %v", err))
		os.Exit(1)
	}
}
