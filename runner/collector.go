package runner

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/rcbops/zigzag-reporter/types"
)

// Lifecycle receives callbacks at fixed points of the host runner's run.
// The collector owns when each hook fires; hooks only append to the
// structures they are handed.
type Lifecycle interface {
	// RunTestLoop fires once, before the first test starts.
	RunTestLoop() error
	// RunTestSetup fires when a test starts.
	RunTestSetup(item *types.TestItem)
	// RunTestTeardown fires when a test finishes.
	RunTestTeardown(item *types.TestItem)
	// CollectionModifyItems fires once over all collected items, after the
	// stream ends.
	CollectionModifyItems(items []*types.TestItem)
}

var markerLine = regexp.MustCompile(`=== MARK: ([A-Za-z_][A-Za-z0-9_-]*)=(\S+)`)

// Collector folds a test2json event stream into test items, dispatching
// lifecycle hooks as events arrive.
type Collector struct {
	log       log.Logger
	lifecycle Lifecycle

	items []*types.TestItem
	index map[string]*types.TestItem
}

// NewCollector creates a collector bound to a lifecycle.
func NewCollector(logger log.Logger, lifecycle Lifecycle) *Collector {
	return &Collector{
		log:       logger,
		lifecycle: lifecycle,
		index:     make(map[string]*types.TestItem),
	}
}

// Process consumes the event stream to exhaustion and returns the run
// result. The stream may interleave events from multiple packages.
// RunTestLoop fires before the stream is read, so a run that produces no
// events still gets its report-level properties.
func (c *Collector) Process(r io.Reader) (*types.RunResult, error) {
	runStart := time.Now()

	if err := c.lifecycle.RunTestLoop(); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		event, err := parseTestEvent(line)
		if err != nil {
			// Raw toolchain output (build errors, vet notes) is not JSON.
			continue
		}
		c.handleEvent(event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read event stream: %w", err)
	}

	c.lifecycle.CollectionModifyItems(c.items)

	result := &types.RunResult{
		Items:    c.items,
		Duration: time.Since(runStart),
	}
	for _, item := range c.items {
		result.Stats.Add(item.Status)
	}
	return result, nil
}

func (c *Collector) handleEvent(event TestEvent) {
	// Package-level events carry no test identity.
	if event.Test == "" {
		return
	}

	key := event.Package + "/" + event.Test
	switch {
	case event.Action == ActionRun:
		item := &types.TestItem{
			Name:    event.Test,
			Package: event.Package,
			Started: event.Time,
		}
		c.items = append(c.items, item)
		c.index[key] = item
		c.lifecycle.RunTestSetup(item)
	case event.Action == ActionOutput:
		item, ok := c.index[key]
		if !ok {
			return
		}
		c.recordOutput(item, event.Output)
	case event.Action.isTerminal():
		item, ok := c.index[key]
		if !ok {
			c.log.Warn("Terminal event for unknown test", "test", event.Test, "package", event.Package)
			return
		}
		item.Status = statusFor(event.Action)
		item.Duration = time.Duration(event.Elapsed * float64(time.Second))
		c.lifecycle.RunTestTeardown(item)
	}
}

// recordOutput keeps the cleaned output line and extracts marker lines
// emitted through the test log.
func (c *Collector) recordOutput(item *types.TestItem, output string) {
	clean := stripansi.Strip(output)

	for _, m := range markerLine.FindAllStringSubmatch(clean, -1) {
		item.AddMarker(m[1], m[2])
	}

	// Framing lines ("=== RUN", "--- PASS") add noise to failure nodes.
	trimmed := strings.TrimSpace(clean)
	if strings.HasPrefix(trimmed, "=== ") || strings.HasPrefix(trimmed, "--- ") {
		return
	}
	item.Output = append(item.Output, clean)
}

func statusFor(action Action) types.TestStatus {
	switch action {
	case ActionFail:
		return types.TestStatusFail
	case ActionSkip:
		return types.TestStatusSkip
	default:
		return types.TestStatusPass
	}
}
