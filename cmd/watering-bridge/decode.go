package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/muurk/watering/internal/protocol"
)

var decodeVersion string

var decodeCmd = &cobra.Command{
	Use:   "decode [hex frame...]",
	Short: "Decode controller frames offline",
	Long: `Decode frames as the bridge would for a given controller version.

Frames are given as hex arguments, or one per line on stdin when no argument
is given. Lines copied from the bridge log ("HH:MM:SS received 50 0F ...")
are accepted; everything before the first hex byte is ignored.`,
	Example: `  watering-bridge decode "02 50 9A 02"
  watering-bridge decode --version 1.9.0 "21 03"
  grep received bridge.log | watering-bridge decode`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := protocol.ParseVersion(decodeVersion)
		if err != nil {
			return err
		}

		var in io.Reader = strings.NewReader(strings.Join(args, "\n"))
		if len(args) == 0 {
			in = os.Stdin
		}
		return decodeFrames(in, cmd.OutOrStdout(), v)
	},
}

func init() {
	decodeCmd.Flags().StringVar(&decodeVersion, "version", protocol.Version220.String(), "Controller firmware version to decode for")
}

// decodeFrames decodes one frame per input line. Lines that hold no hex are
// reported and skipped.
func decodeFrames(r io.Reader, w io.Writer, v protocol.Version) error {
	scanner := bufio.NewScanner(r)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		frame, err := protocol.ParseFrame(frameText(line))
		if err != nil || len(frame) == 0 {
			fmt.Fprintf(w, "line %d: no frame in %q\n", n, line)
			continue
		}
		ev := protocol.Decode(v, frame)
		fmt.Fprintf(w, "%-24s %-16s %s\n", protocol.FormatFrame(frame), protocol.OpcodeName(frame[0]), ev)
	}
	return scanner.Err()
}

// frameText strips a leading log prefix: it returns the line from the first
// field on after which every field is a hex byte.
func frameText(line string) string {
	fields := strings.Fields(line)
	start := len(fields)
	for i := len(fields) - 1; i >= 0; i-- {
		if !isHexByte(fields[i]) {
			break
		}
		start = i
	}
	if start == len(fields) {
		return line
	}
	return strings.Join(fields[start:], " ")
}

func isHexByte(s string) bool {
	if len(s) != 2 {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdefABCDEF", c) {
			return false
		}
	}
	return true
}
