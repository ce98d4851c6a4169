package cli

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/reqtrace/pkg/adapter"
	"github.com/getmockd/reqtrace/pkg/devtools"
	"github.com/getmockd/reqtrace/pkg/logging"
	"github.com/getmockd/reqtrace/pkg/session"
)

var (
	traceEmit     []string
	traceMethod   string
	traceHeaders  []string
	traceDevtools string
	traceTimeout  time.Duration
)

var traceCmd = &cobra.Command{
	Use:   "trace URL...",
	Short: "Perform instrumented requests and report their lifecycle",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTrace,
}

func init() {
	traceCmd.Flags().StringSliceVar(&traceEmit, "emit", nil, "Emission modes (summary, full, passthrough)")
	traceCmd.Flags().StringVarP(&traceMethod, "method", "X", http.MethodGet, "Request method")
	traceCmd.Flags().StringArrayVarP(&traceHeaders, "header", "H", nil, "Request header (KEY: VALUE), repeatable")
	traceCmd.Flags().StringVar(&traceDevtools, "devtools-listen", "", "Serve a remote-debugging endpoint on this address")
	traceCmd.Flags().DurationVar(&traceTimeout, "timeout", 30*time.Second, "Per-request timeout")
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(traceEmit) > 0 {
		cfg.Emit = traceEmit
	}
	if traceDevtools != "" {
		cfg.DevtoolsListen = traceDevtools
	}

	slogger := logging.New(*newLogger(cfg))
	modes, unknown := cfg.Modes()
	for _, name := range unknown {
		slogger.Warn("unknown emit mode, skipping", "mode", name)
	}

	opts := session.Options{
		Logger:    logging.Console(),
		EmitModes: modes,
	}

	if cfg.DevtoolsListen != "" {
		dt := devtools.NewServer(cfg.DevtoolsListen, slogger)
		if err := dt.Start(); err != nil {
			return err
		}
		defer func() { _ = dt.Close() }()
		opts.DebugChannel = dt
		fmt.Println("devtools:", dt.WebSocketURL())
	}

	sess := session.Start(opts)
	defer sess.Stop()

	client := adapter.Client(sess)
	client.Timeout = traceTimeout

	for _, url := range args {
		if err := fetch(client, url); err != nil {
			// The failure was already reported through the sinks; keep
			// tracing the remaining URLs.
			slogger.Debug("request failed", "url", url, "error", err)
		}
	}
	return nil
}

// fetch performs one instrumented request and drains its body so the full
// lifecycle is observed.
func fetch(client *http.Client, url string) error {
	req, err := http.NewRequest(traceMethod, url, nil)
	if err != nil {
		return err
	}
	for _, h := range traceHeaders {
		key, value, ok := strings.Cut(h, ":")
		if !ok {
			continue
		}
		req.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, err = io.Copy(io.Discard, resp.Body)
	return err
}
