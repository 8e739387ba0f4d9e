package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Azure/iwlan-eproe/pkg/cause"
	"github.com/Azure/iwlan-eproe/pkg/eproe"
	"github.com/Azure/iwlan-eproe/pkg/policy"
)

var (
	flagApn         string
	flagErrors      string
	flagMaxAttempts int
	flagNumFqdns    int
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Replay a sequence of reported tunnel-setup errors against one APN",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&flagApn, "apn", "ims", "APN to simulate against")
	simulateCmd.Flags().StringVar(&flagErrors, "errors", "24,24,TIMEOUT_EXCEPTION", "comma-separated sequence of IKE notify codes or Generic error names")
	simulateCmd.Flags().IntVar(&flagMaxAttempts, "max-attempts", 5, "maximum number of gated attempts to drive")
	simulateCmd.Flags().IntVar(&flagNumFqdns, "num-fqdns", 1, "number of FQDNs configured for the simulated APN")
}

// noopSubscriber discards subscribe/unsubscribe calls: the CLI has no real
// Wi-Fi/airplane/call-state signal source to bridge to.
type noopSubscriber struct{}

func (noopSubscriber) Subscribe(policy.UnthrottlingEvent)   {}
func (noopSubscriber) Unsubscribe(policy.UnthrottlingEvent) {}

type consoleNotifier struct{}

func (consoleNotifier) NotifyUnthrottled(apn string) {
	fmt.Println(color.CyanString("  [unthrottled] %s", apn))
}

// eproeClock adapts the facade's own wait decision into cenkalti/backoff's
// BackOff interface, so the retry loop's pacing is driven by backoff.Retry
// rather than a hand-rolled sleep loop. EPROE itself never imports backoff;
// only the caller simulated here does.
type eproeClock struct {
	next time.Duration
}

func (c *eproeClock) NextBackOff() time.Duration { return c.next }
func (c *eproeClock) Reset()                     {}

func parseSimulatedError(tok string) (cause.Error, error) {
	tok = strings.TrimSpace(tok)
	if code, err := strconv.Atoi(tok); err == nil {
		return cause.NewIkeProtocolError(code), nil
	}
	t := cause.NonIkeErrorType(tok)
	if !cause.GenericClosedSet[t] {
		return cause.Error{}, fmt.Errorf("unrecognized simulated error %q", tok)
	}
	return cause.NewNonIkeError(t), nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

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

	tokens := strings.Split(flagErrors, ",")
	attempt := 0

	bo := &eproeClock{}
	operation := func() error {
		if attempt >= len(tokens) {
			fmt.Println(color.GreenString("bring-up succeeded for %s", flagApn))
			slot.Report(flagApn, cause.NoErrorValue())
			return nil
		}

		simErr, err := parseSimulatedError(tokens[attempt])
		attempt++
		if err != nil {
			return backoff.Permanent(err)
		}

		waitSeconds := slot.Report(flagApn, simErr)
		fqdn := slot.CurrentFqdnIndex(flagNumFqdns)
		fmt.Println(color.YellowString(
			"attempt %d: error=%s wait=%ds fqdn_index=%d public_cause=%s initial_attach=%v",
			attempt, simErr.String(), waitSeconds, fqdn,
			slot.PublicCause(flagApn), slot.ShouldRetryWithInitialAttach(flagApn)))

		bo.next = time.Duration(waitSeconds) * time.Second
		return fmt.Errorf("retry after %s", bo.next)
	}

	retryErr := backoff.Retry(operation, backoff.WithMaxRetries(bo, uint64(flagMaxAttempts)))
	if retryErr != nil {
		fmt.Println(color.RedString("simulation ended: %v", retryErr))
	}
	return nil
}
