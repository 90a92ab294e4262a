package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Status is the state of the status indicator for one job.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Options configures the progress reporter.
type Options struct {
	// Job names the job being reported on (for display).
	Job string

	// TotalNodes is the number of nodes the job is sent to.
	TotalNodes int

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Zero disables periodic updates; status changes are still printed.
	UpdateInterval time.Duration
}

// Reporter outputs human-readable status and progress information.
type Reporter struct {
	opts Options

	mu             sync.Mutex
	status         Status
	message        string
	completedBytes atomic.Int64
	completedNodes atomic.Int32
	failedNodes    atomic.Int32
	inProgress     atomic.Int32
	startTime      time.Time
	stopCh         chan struct{}
	doneCh         chan struct{}
	started        bool
	looping        bool
	stopped        bool
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	return &Reporter{
		opts:   opts,
		status: StatusIdle,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting periodic progress information.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.startTime = time.Now()

	if r.opts.UpdateInterval > 0 {
		r.looping = true
		go r.updateLoop()
	}
}

// Stop stops the progress reporter. When the update loop is running, Stop
// returns after it has printed the final summary.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	looping := r.looping
	r.mu.Unlock()

	close(r.stopCh)
	if looping {
		<-r.doneCh
	}
}

// SetStatus updates the status indicator and prints the message.
func (r *Reporter) SetStatus(status Status, message string) {
	r.mu.Lock()
	r.status = status
	r.message = message
	r.mu.Unlock()

	prefix := "[downlog]"
	if r.opts.Job != "" {
		prefix = fmt.Sprintf("[downlog] %s:", r.opts.Job)
	}
	if message == "" {
		fmt.Fprintf(r.opts.Output, "%s %s\n", prefix, status)
		return
	}
	// Multi-line messages keep the prefix on every line.
	for _, line := range strings.Split(message, "\n") {
		fmt.Fprintf(r.opts.Output, "%s %s\n", prefix, line)
	}
}

// Status returns the current status and its message.
func (r *Reporter) Status() (Status, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, r.message
}

// NodeStarted marks a node request as in flight.
func (r *Reporter) NodeStarted() {
	r.inProgress.Add(1)
}

// BytesWritten records bytes saved for an in-flight node.
func (r *Reporter) BytesWritten(n int64) {
	r.completedBytes.Add(n)
}

// NodeCompleted marks an in-flight node as completed.
func (r *Reporter) NodeCompleted() {
	r.completedNodes.Add(1)
	r.inProgress.Add(-1)
}

// NodeFailed marks an in-flight node as failed.
func (r *Reporter) NodeFailed() {
	r.failedNodes.Add(1)
	r.inProgress.Add(-1)
}

// updateLoop periodically updates the progress display.
func (r *Reporter) updateLoop() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

// printProgress outputs the current progress.
func (r *Reporter) printProgress() {
	completed := int(r.completedNodes.Load())
	failed := int(r.failedNodes.Load())
	inProgress := int(r.inProgress.Load())

	pending := r.opts.TotalNodes - completed - failed - inProgress
	if pending < 0 {
		pending = 0
	}

	fmt.Fprintf(r.opts.Output, "\r[downlog] Nodes: %d completed | %d failed | %d in-progress | %d pending | %s | %s    ",
		completed,
		failed,
		inProgress,
		pending,
		formatBytes(r.completedBytes.Load()),
		formatDuration(time.Since(r.startTime)),
	)
}

// printFinalStatus outputs the final status.
func (r *Reporter) printFinalStatus() {
	fmt.Fprintf(r.opts.Output, "\r[downlog] Nodes: %d completed | %d failed | %s saved | Total time: %s    \n",
		r.completedNodes.Load(),
		r.failedNodes.Load(),
		formatBytes(r.completedBytes.Load()),
		formatDuration(time.Since(r.startTime)),
	)
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
		TB = GB * 1024
	)

	switch {
	case b >= TB:
		return fmt.Sprintf("%.2f TB", float64(b)/float64(TB))
	case b >= GB:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes is exported for use by other packages.
func FormatBytes(b int64) string {
	return formatBytes(b)
}

// byteUnits is ordered so that longer suffixes are tried first.
var byteUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"TiB", 1 << 40},
	{"GiB", 1 << 30},
	{"MiB", 1 << 20},
	{"KiB", 1 << 10},
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// ParseBytes parses a human-readable byte string (e.g., "500MB").
// KB, MB, GB and TB are binary multiples, same as KiB, MiB, GiB and TiB.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	var multiplier int64 = 1

	for _, u := range byteUnits {
		if strings.HasSuffix(s, u.suffix) {
			multiplier = u.multiplier
			s = strings.TrimSpace(strings.TrimSuffix(s, u.suffix))
			break
		}
	}

	var value float64
	if _, err := fmt.Sscanf(s, "%f", &value); err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative byte string: %s", s)
	}

	return int64(value * float64(multiplier)), nil
}
