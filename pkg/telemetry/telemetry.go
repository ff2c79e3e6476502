package telemetry

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// Minimal, low-overhead request telemetry designed for local usage.
// Only slow requests are recorded (see slowThreshold); the record goes
// to telemetry.jsonl under the state dir as a single line per request.

var (
	writerOnce    sync.Once
	writerCh      chan []byte
	requestCtr    uint64
	slowThreshold = 200 * time.Millisecond

	stateMu  sync.Mutex
	stateDir string
)

// SetStateDir sets the directory the telemetry file is written under.
// Must be called before the first slow request to take effect.
func SetStateDir(dir string) {
	stateMu.Lock()
	defer stateMu.Unlock()
	stateDir = dir
}

// SetSlowThreshold sets the duration above which requests get a record.
func SetSlowThreshold(d time.Duration) {
	if d <= 0 {
		d = 0
	}
	slowThreshold = d
}

// initWriter lazily starts a background writer appending to
// <stateDir>/telemetry/telemetry.jsonl. Best-effort: if the file cannot
// be opened telemetry is silently disabled.
func initWriter() {
	writerCh = make(chan []byte, 1024)
	go func() {
		stateMu.Lock()
		dir := stateDir
		stateMu.Unlock()
		if dir == "" {
			dir = "."
		}
		dir = filepath.Join(dir, "telemetry")
		_ = os.MkdirAll(dir, 0o755)
		f, err := os.OpenFile(filepath.Join(dir, "telemetry.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer f.Close()
		for b := range writerCh {
			_, _ = f.Write(append(b, '\n'))
		}
	}()
}

// Middleware wraps the handler and records slow requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		if dur <= slowThreshold {
			return
		}
		n := atomic.AddUint64(&requestCtr, 1)
		rec := fmt.Sprintf(`{"request_id":"r-%s-%d","method":%q,"path":%q,"duration_ms":%d,"status":%d}`,
			start.UTC().Format("20060102T150405"), n, r.Method, r.URL.Path, dur.Milliseconds(), srw.status)
		writerOnce.Do(initWriter)
		select {
		case writerCh <- []byte(rec):
		default:
			// drop if channel full to avoid blocking
		}
	})
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
