package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/watering/internal/client"
	"github.com/muurk/watering/internal/monitor"
	"github.com/muurk/watering/internal/protocol"
	"github.com/muurk/watering/internal/ui"
)

var sendCmd = &cobra.Command{
	Use:   "send <command> [args]",
	Short: "Send one command to a running bridge",
	Long: `Send one command to a running bridge and report whether it was queued.

Commands:
  ` + strings.Join(client.Commands, ", ") + `
  valve <1-4> <on|off>
  tempswitch <on|off>

The outcome reported by the controller appears in the bridge log.`,
	Example: `  watering-bridge send checkNow --url http://192.168.1.20:8080
  watering-bridge send valve 2 on
  watering-bridge send tempswitch off`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	addBridgeFlags(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	if err := initClientLogging(); err != nil {
		return err
	}

	action, err := parseSendArgs(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	url, err := monitor.ResolveURL(ctx, monitor.Options{URL: bridgeURL, Instance: bridgeInstance})
	if err != nil {
		return err
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	if err := action.run(ctx, client.NewClient(url)); err != nil {
		p.PrintFailure(action.title+" failed", err, []string{
			"Check that the bridge is running at " + url,
			"Commands need an open radio link (POST /api/connect)",
		})
		return err
	}
	p.PrintSuccess(action.title+" sent", ui.Detail{Key: "Bridge", Value: url})
	return nil
}

type sendAction struct {
	title string
	run   func(ctx context.Context, c *client.Client) error
}

// parseSendArgs maps command line arguments to a client call.
func parseSendArgs(args []string) (sendAction, error) {
	name := args[0]
	switch strings.ToLower(name) {
	case "valve":
		if len(args) != 3 {
			return sendAction{}, fmt.Errorf("usage: valve <1-4> <on|off>")
		}
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > protocol.Channels {
			return sendAction{}, fmt.Errorf("invalid valve %q, want 1-%d", args[1], protocol.Channels)
		}
		on, err := parseOnOff(args[2])
		if err != nil {
			return sendAction{}, err
		}
		ch := uint8(n - 1)
		return sendAction{
			title: fmt.Sprintf("Valve %d %s", n, args[2]),
			run: func(ctx context.Context, c *client.Client) error {
				return c.SetChannel(ctx, ch, on)
			},
		}, nil

	case "tempswitch":
		if len(args) != 2 {
			return sendAction{}, fmt.Errorf("usage: tempswitch <on|off>")
		}
		on, err := parseOnOff(args[1])
		if err != nil {
			return sendAction{}, err
		}
		return sendAction{
			title: "Temp switch " + args[1],
			run: func(ctx context.Context, c *client.Client) error {
				return c.SetTempSwitch(ctx, on)
			},
		}, nil
	}

	for _, cmd := range client.Commands {
		if strings.EqualFold(cmd, name) {
			if len(args) != 1 {
				return sendAction{}, fmt.Errorf("%s takes no arguments", cmd)
			}
			return sendAction{
				title: cmd,
				run: func(ctx context.Context, c *client.Client) error {
					return c.Command(ctx, cmd)
				},
			}, nil
		}
	}
	return sendAction{}, fmt.Errorf("unknown command %q", name)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid state %q, want on or off", s)
}
