// usrp-peer is a mock USRP node for exercising usrp-link without a real
// AllStarLink server. It keys up on a fixed cycle, announces itself with
// SET_INFO, sends a test pattern and logs every packet it receives.
package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dbehnke/usrp-link/internal/logging"
)

type peerOptions struct {
	listenPort int
	remoteAddr string
	remotePort int
	pattern    string
	callsign   string
	dmrID      uint32
	talkGroup  uint32
	onTime     time.Duration
	offTime    time.Duration
	verbose    bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var opts peerOptions

	cmd := &cobra.Command{
		Use:          "usrp-peer",
		Short:        "Mock USRP peer sending test-pattern transmissions",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if opts.verbose {
				level = "debug"
			}
			logger := logging.NewWithWriter(logging.Config{Level: level, Format: "text"}, os.Stdout)

			peer, err := newPeer(opts, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return peer.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.listenPort, "listen-port", 32001, "UDP port to receive on")
	f.StringVar(&opts.remoteAddr, "remote-addr", "127.0.0.1", "address of the link under test")
	f.IntVar(&opts.remotePort, "remote-port", 34001, "UDP port of the link under test")
	f.StringVar(&opts.pattern, "pattern", string(PatternSine440Hz),
		"test pattern (silence, sine_440hz, sine_1khz, white_noise, dtmf_sequence, frequency_sweep)")
	f.StringVar(&opts.callsign, "callsign", "W1AW", "callsign announced in SET_INFO")
	f.Uint32Var(&opts.dmrID, "dmr-id", 0, "DMR ID announced in SET_INFO")
	f.Uint32Var(&opts.talkGroup, "talkgroup", 1, "talkgroup announced in SET_INFO")
	f.DurationVar(&opts.onTime, "on-time", 3*time.Second, "keyed part of the PTT cycle")
	f.DurationVar(&opts.offTime, "off-time", 2*time.Second, "unkeyed part of the PTT cycle")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "log every voice frame")
	return cmd
}
