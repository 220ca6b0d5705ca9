package cmd

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/spacehunters/contracts/internal/netcheck"
)

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "List and probe the declared networks",
	Long: `Network commands.

Examples:
  toolchainctl networks list
  toolchainctl networks check --concurrency 8 --timeout 5s
  toolchainctl networks check --metrics-file /var/lib/node_exporter/toolchain.prom`,
}

var networksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the declared networks",
	Args:  cobra.NoArgs,
	RunE:  runNetworksList,
}

var networksCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every network endpoint",
	Long: `Dial every remote network, compare the chain ID it reports with the
declared one, and confirm the sandbox's archive node still serves the fork
block. Exits non-zero if any probe fails.`,
	Args: cobra.NoArgs,
	RunE: runNetworksCheck,
}

func init() {
	networksCheckCmd.Flags().Duration("timeout", netcheck.DefaultTimeout, "per-network probe timeout")
	networksCheckCmd.Flags().Int("concurrency", netcheck.DefaultConcurrency, "maximum concurrent probes")
	networksCheckCmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile")

	networksCmd.AddCommand(networksListCmd)
	networksCmd.AddCommand(networksCheckCmd)

	rootCmd.AddCommand(networksCmd)
}

// networkRow is the JSON rendering of one network in networks list.
type networkRow struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	ChainID   uint64 `json:"chainId,omitempty"`
	SignerSet string `json:"signerSet,omitempty"`
	Sandbox   bool   `json:"sandbox"`
	ForkBlock uint64 `json:"forkBlock,omitempty"`
}

func runNetworksList(cmd *cobra.Command, args []string) error {
	d, _, err := loadDescriptor(cmd)
	if err != nil {
		return err
	}

	var rows []networkRow
	for _, n := range d.Networks() {
		row := networkRow{
			Name:      n.Name,
			URL:       n.URL,
			ChainID:   n.ChainID,
			SignerSet: n.SignerSet,
			Sandbox:   n.IsSandbox(),
		}
		if n.IsSandbox() {
			row.URL = n.Forking.URL
			row.ForkBlock = n.Forking.BlockNumber
		}
		rows = append(rows, row)
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		return printJSON(out, map[string]interface{}{
			"networks": rows,
			"count":    len(rows),
		})
	}

	w := newTable(out)
	printTableHeader(w, "NAME", "CHAIN ID", "SIGNERS", "URL")
	for _, r := range rows {
		chainID := "-"
		if r.ChainID != 0 {
			chainID = strconv.FormatUint(r.ChainID, 10)
		}
		signers := orDash(r.SignerSet)
		if r.Sandbox {
			signers = colorYellow(fmt.Sprintf("sandbox@%d", r.ForkBlock))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, chainID, signers, truncate(r.URL, 60))
	}
	return w.Flush()
}

// checkRow is the JSON rendering of one probe result.
type checkRow struct {
	netcheck.Result
	LatencyMs float64 `json:"latencyMs"`
	OK        bool    `json:"ok"`
	Error     string  `json:"error,omitempty"`
}

func runNetworksCheck(cmd *cobra.Command, args []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	d, logger, err := loadDescriptor(cmd)
	if err != nil {
		return err
	}
	runID := uuid.New()
	logger = logger.With(slog.String("run_id", runID.String()))

	var metrics *netcheck.Metrics
	if metricsFile != "" {
		metrics = netcheck.NewMetrics()
	}

	checker := netcheck.NewChecker(netcheck.Options{
		Dial:        dialer,
		Timeout:     timeout,
		Concurrency: concurrency,
		Logger:      logger,
		Metrics:     metrics,
	})
	results := checker.CheckAll(cmd.Context(), d)

	if metrics != nil {
		if err := metrics.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		rows := make([]checkRow, len(results))
		for i, r := range results {
			rows[i] = checkRow{
				Result:    r,
				LatencyMs: float64(r.Latency.Microseconds()) / 1000,
				OK:        r.OK(),
			}
			if r.Err != nil {
				rows[i].Error = r.Err.Error()
			}
		}
		if err := printJSON(out, map[string]interface{}{
			"runId":   runID,
			"results": rows,
			"failed":  failed,
		}); err != nil {
			return err
		}
	} else {
		w := newTable(out)
		printTableHeader(w, "NETWORK", "STATUS", "CHAIN ID", "LATENCY", "DETAIL")
		for _, r := range results {
			status, detail := colorGreen("OK"), ""
			if !r.OK() {
				status, detail = colorRed("FAIL"), r.Err.Error()
			}
			chainID := "-"
			if r.ChainID != 0 {
				chainID = strconv.FormatUint(r.ChainID, 10)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Network, status, chainID,
				r.Latency.Round(time.Millisecond), truncate(detail, 80))
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d network checks failed", failed, len(results))
	}
	return nil
}

// dialer is replaced in tests.
var dialer netcheck.DialFunc = netcheck.DialEth
