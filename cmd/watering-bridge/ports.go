package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/watering/internal/client"
	"github.com/muurk/watering/internal/radio"
	"github.com/muurk/watering/internal/ui"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports a radio modem may be attached to",
	Long: `List the USB serial ports of this machine, or with --url those of the
machine running the bridge.`,
	RunE: runPorts,
}

func init() {
	portsCmd.Flags().StringVar(&bridgeURL, "url", "", "List the ports of the bridge at this URL instead")
}

func runPorts(cmd *cobra.Command, args []string) error {
	if err := initClientLogging(); err != nil {
		return err
	}

	var (
		ports []radio.PortInfo
		err   error
		where = "local"
	)
	if bridgeURL != "" {
		where = bridgeURL
		ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
		defer cancel()
		ports, err = client.NewClient(bridgeURL).Ports(ctx)
	} else {
		ports, err = radio.ListPorts()
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	p.PrintHeader("Serial ports", "watering-bridge ports", ui.Detail{Key: "Host", Value: where})
	if err != nil {
		p.PrintFailure("Port enumeration failed", err, nil)
		return err
	}
	if len(ports) == 0 {
		p.PrintWarning("No USB serial ports found")
		return nil
	}
	p.PrintTable(portColumns, portRows(ports))
	return nil
}

var portColumns = []string{"PORT", "VID:PID", "SERIAL", "PRODUCT"}

func portRows(ports []radio.PortInfo) [][]string {
	rows := make([][]string, len(ports))
	for i, port := range ports {
		ids := ""
		if port.VID != "" || port.PID != "" {
			ids = fmt.Sprintf("%s:%s", port.VID, port.PID)
		}
		rows[i] = []string{port.Name, ids, port.SerialNumber, port.Product}
	}
	return rows
}
