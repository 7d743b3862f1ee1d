package segment

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"AssetForge/pkg/plugin"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const segmentDir = "segments"

// maxUploadAttempts bounds how often a single segment is tried: the live
// attempt plus one retry picked up by the final sweep.
const maxUploadAttempts = 2

// Uploader ships HLS segments to storage while the encoder is still
// producing them. Segments are detected through filesystem notifications,
// queued exactly once, uploaded under segments/ in the variant directory,
// and removed locally. The playlist is rewritten and uploaded strictly after
// every segment upload has completed, so a reader that can see the playlist
// can always fetch what it references.
type Uploader struct {
	dir     string
	files   plugin.FileOperations
	monitor *StabilityMonitor
	workers int
	logger  *zap.Logger

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []string
	queued   map[string]bool
	uploaded map[string]bool
	attempts map[string]int
	inFlight int
	closed   bool
	errs     []error
}

func NewUploader(dir string, files plugin.FileOperations, monitor *StabilityMonitor, workers int, logger *zap.Logger) *Uploader {
	if workers <= 0 {
		workers = 4
	}
	u := &Uploader{
		dir:      dir,
		files:    files,
		monitor:  monitor,
		workers:  workers,
		logger:   logger,
		queued:   map[string]bool{},
		uploaded: map[string]bool{},
		attempts: map[string]int{},
	}
	u.cond = sync.NewCond(&u.mu)
	return u
}

// Start begins watching the output directory and spawns the upload workers.
func (u *Uploader) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(u.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", u.dir, err)
	}
	u.watcher = watcher

	u.wg.Add(1)
	go u.watchLoop()

	for i := 0; i < u.workers; i++ {
		u.wg.Add(1)
		go u.worker(ctx)
	}
	return nil
}

func (u *Uploader) watchLoop() {
	defer u.wg.Done()
	for {
		select {
		case event, ok := <-u.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !isSegment(name) {
				continue
			}
			u.enqueue(name)
		case err, ok := <-u.watcher.Errors:
			if !ok {
				return
			}
			u.logger.Warn("segment watcher error", zap.Error(err))
		}
	}
}

// isSegment reports whether a produced file should be uploaded as a segment.
// Playlists are handled separately at the end and encoder temp files are
// rename targets, not content.
func isSegment(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext != ".m3u8" && ext != ".tmp" && ext != ""
}

func (u *Uploader) enqueue(name string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed || u.queued[name] || u.uploaded[name] {
		return
	}
	u.queued[name] = true
	u.queue = append(u.queue, name)
	u.cond.Signal()
}

func (u *Uploader) worker(ctx context.Context) {
	defer u.wg.Done()
	for {
		u.mu.Lock()
		for len(u.queue) == 0 && !u.closed {
			u.cond.Wait()
		}
		if len(u.queue) == 0 {
			u.mu.Unlock()
			return
		}
		name := u.queue[0]
		u.queue = u.queue[1:]
		u.inFlight++
		u.mu.Unlock()

		err := u.uploadOne(ctx, name)

		u.mu.Lock()
		u.inFlight--
		if err != nil {
			u.attempts[name]++
			if u.attempts[name] >= maxUploadAttempts {
				u.errs = append(u.errs, err)
				u.logger.Error("segment upload failed", zap.String("segment", name), zap.Error(err))
			} else {
				// The local copy is still on disk, so dropping the dedup
				// entry lets the final sweep re-enqueue it once.
				delete(u.queued, name)
				u.logger.Warn("segment upload failed, will retry", zap.String("segment", name), zap.Error(err))
			}
		} else {
			u.uploaded[name] = true
		}
		u.cond.Broadcast()
		u.mu.Unlock()
	}
}

func (u *Uploader) uploadOne(ctx context.Context, name string) error {
	localPath := filepath.Join(u.dir, name)
	if err := u.monitor.WaitForStable(ctx, localPath); err != nil {
		return fmt.Errorf("segment %s: %w", name, err)
	}
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open segment %s: %w", name, err)
	}
	defer f.Close()
	if err := u.files.Write(ctx, segmentDir+"/"+name, f); err != nil {
		return fmt.Errorf("failed to upload segment %s: %w", name, err)
	}
	if err := os.Remove(localPath); err != nil {
		u.logger.Warn("failed to remove uploaded segment", zap.String("segment", name), zap.Error(err))
	}
	return nil
}

// sweep enqueues every segment still sitting in the output directory.
// Notification delivery is not guaranteed, so Finish runs this to catch
// files whose events were dropped or raced the watcher setup.
func (u *Uploader) sweep() error {
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", u.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isSegment(entry.Name()) {
			continue
		}
		u.enqueue(entry.Name())
	}
	return nil
}

func (u *Uploader) drain() {
	u.mu.Lock()
	defer u.mu.Unlock()
	for len(u.queue) > 0 || u.inFlight > 0 {
		u.cond.Wait()
	}
}

// Finish completes the live phase: it sweeps the directory for segments the
// watcher missed, drains the queue, then uploads the rewritten playlist
// last. Call after the encoder process has exited.
func (u *Uploader) Finish(ctx context.Context, playlistName string) error {
	// Whatever happens below, the watcher is closed, the workers are
	// stopped and the local output directory is removed.
	defer u.shutdown()

	// Two sweep passes: the first catches files present before the encoder
	// exited, the second anything flushed between the first sweep and the
	// drain completing. The second pass also re-enqueues segments whose
	// first upload attempt failed.
	for i := 0; i < 2; i++ {
		if err := u.sweep(); err != nil {
			return err
		}
		u.drain()
	}

	u.mu.Lock()
	errCount := len(u.errs)
	var firstErr error
	if errCount > 0 {
		firstErr = u.errs[0]
	}
	u.mu.Unlock()

	if errCount > 0 {
		return fmt.Errorf("%d segment upload(s) failed: %w", errCount, firstErr)
	}
	return u.uploadPlaylist(ctx, playlistName)
}

// Abort stops the watcher and workers without uploading anything further.
// Used when the encoder itself failed and the variant is already lost.
func (u *Uploader) Abort() {
	u.mu.Lock()
	u.queue = nil
	u.mu.Unlock()
	u.shutdown()
}

// shutdown closes the watcher, lets every worker drain out and removes the
// local output directory. Every Finish and Abort path ends here.
func (u *Uploader) shutdown() {
	if u.watcher != nil {
		u.watcher.Close()
	}
	u.mu.Lock()
	u.closed = true
	u.cond.Broadcast()
	u.mu.Unlock()
	u.wg.Wait()

	if err := os.RemoveAll(u.dir); err != nil {
		u.logger.Warn("failed to clean up output directory", zap.String("dir", u.dir), zap.Error(err))
	}
}

func (u *Uploader) uploadPlaylist(ctx context.Context, playlistName string) error {
	raw, err := os.ReadFile(filepath.Join(u.dir, playlistName))
	if err != nil {
		return fmt.Errorf("failed to read playlist: %w", err)
	}
	rewritten := RewritePlaylist(string(raw))
	if err := u.files.Write(ctx, playlistName, strings.NewReader(rewritten)); err != nil {
		return fmt.Errorf("failed to upload playlist: %w", err)
	}
	return nil
}

// RewritePlaylist prefixes every media URI in an HLS playlist with the
// segments/ directory the uploader shipped them to. Tag lines pass through
// untouched except EXT-X-MAP, whose URI attribute also points at a shipped
// file.
func RewritePlaylist(playlist string) string {
	lines := strings.Split(playlist, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#EXT-X-MAP:") {
			lines[i] = strings.Replace(line, `URI="`, `URI="`+segmentDir+"/", 1)
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		lines[i] = segmentDir + "/" + trimmed
	}
	return strings.Join(lines, "\n")
}
