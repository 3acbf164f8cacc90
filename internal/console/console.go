// Package console implements the interactive operator console:
// speed/throttle/reset/metrics/quit (plus a supplemented "book"
// command, see SPEC_FULL.md §6), read line-by-line from stdin the way
// the rest of this pack's CLIs parse flags and subcommands.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/siri1404/ITCHFlow/internal/metrics"
	"github.com/siri1404/ITCHFlow/internal/orderbook"
)

// Controls is the surface the console drives. *runtime.Runtime
// implements it; tests can supply a fake.
type Controls interface {
	SetReplaySpeed(float64) error
	SetThrottleRate(float64) error
	ResetCounters()
	Metrics() metrics.Snapshot
	DepthSnapshot(symbol uint32, n int) (bids, asks []orderbook.DepthLevel)
	ResolveSymbol(ticker string) (uint32, bool)
	Stop()
}

// Console reads commands from in and writes prompts/output to out.
type Console struct {
	ctl Controls
	in  *bufio.Scanner
	out io.Writer
}

// New returns a Console wired to ctl, reading from in and writing to out.
func New(ctl Controls, in io.Reader, out io.Writer) *Console {
	return &Console{ctl: ctl, in: bufio.NewScanner(in), out: out}
}

// Run reads and dispatches commands until "quit" or the input is
// exhausted. It does not return an error: a malformed command is
// reported to out and the loop continues.
func (c *Console) Run() {
	fmt.Fprint(c.out, "tickshaper> ")
	for c.in.Scan() {
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			fmt.Fprint(c.out, "tickshaper> ")
			continue
		}
		if !c.dispatch(line) {
			return
		}
		fmt.Fprint(c.out, "tickshaper> ")
	}
}

func (c *Console) dispatch(line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "speed":
		c.cmdSpeed(fields)
	case "throttle":
		c.cmdThrottle(fields)
	case "reset":
		c.ctl.ResetCounters()
		fmt.Fprintln(c.out, "counters reset")
	case "metrics":
		c.cmdMetrics()
	case "book":
		c.cmdBook(fields)
	case "quit":
		c.ctl.Stop()
		return false
	default:
		fmt.Fprintf(c.out, "unknown command: %s\n", fields[0])
	}
	return true
}

func (c *Console) cmdSpeed(fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(c.out, "usage: speed <float>")
		return
	}
	v, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		fmt.Fprintf(c.out, "invalid speed: %v\n", err)
		return
	}
	if err := c.ctl.SetReplaySpeed(v); err != nil {
		fmt.Fprintf(c.out, "rejected: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "replay speed set to %.3f\n", v)
}

func (c *Console) cmdThrottle(fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(c.out, "usage: throttle <uint>")
		return
	}
	v, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		fmt.Fprintf(c.out, "invalid rate: %v\n", err)
		return
	}
	if err := c.ctl.SetThrottleRate(float64(v)); err != nil {
		fmt.Fprintf(c.out, "rejected: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "throttle rate set to %d\n", v)
}

func (c *Console) cmdMetrics() {
	s := c.ctl.Metrics()
	fmt.Fprintf(c.out, "processed=%d throttled=%d throughput=%.1f/s queue_depth=%d burst=%v cpu=%.1f%% mem=%dB uptime=%ds\n",
		s.MessagesProcessed, s.MessagesThrottled, s.CurrentThroughput,
		s.QueueDepth, s.MicroburstActive, s.CPUUsagePercent,
		s.MemoryUsageBytes, s.UptimeSeconds)
}

func (c *Console) cmdBook(fields []string) {
	if len(fields) < 2 {
		fmt.Fprintln(c.out, "usage: book <symbol>")
		return
	}
	id, ok := c.ctl.ResolveSymbol(fields[1])
	if !ok {
		fmt.Fprintf(c.out, "unknown symbol: %s\n", fields[1])
		return
	}
	bids, asks := c.ctl.DepthSnapshot(id, 5)
	fmt.Fprintf(c.out, "%s bids:\n", fields[1])
	for _, lvl := range bids {
		fmt.Fprintf(c.out, "  %d @ %d (%d orders)\n", lvl.TotalQty, lvl.Price, lvl.Orders)
	}
	fmt.Fprintf(c.out, "%s asks:\n", fields[1])
	for _, lvl := range asks {
		fmt.Fprintf(c.out, "  %d @ %d (%d orders)\n", lvl.TotalQty, lvl.Price, lvl.Orders)
	}
}
