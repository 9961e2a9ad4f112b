package analysis

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"protofuzz/internal/findings"
	"protofuzz/internal/types"
	"protofuzz/pkg/watchdog"
)

// Watcher re-analyzes a campaign once its findings directory has been quiet
// for the debounce period after a change.
type Watcher struct {
	cli       *CLI
	factory   *watchdog.WatchDogFactory
	debounce  time.Duration
	instances bool
	logger    *zap.Logger
}

func NewWatcher(cli *CLI, factory *watchdog.WatchDogFactory, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = time.Second
	}
	return &Watcher{
		cli:       cli,
		factory:   factory,
		debounce:  debounce,
		instances: cli.instances,
		logger:    logger,
	}
}

// Watch blocks until ctx is done. Re-analysis runs on the calling goroutine,
// one campaign at a time, in campaign order.
func (w *Watcher) Watch(ctx context.Context, campaigns []types.Campaign) error {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan watchdog.Event, 64)
	wd, err := w.factory.New(watchCtx, events, nil)
	if err != nil {
		return err
	}

	watched := 0
	for i, campaign := range campaigns {
		for _, dir := range w.watchDirs(campaign.FindingsDir) {
			if err := wd.AddDir(dir, strconv.Itoa(i)); err != nil {
				w.logger.Debug("not watching directory", zap.String("campaign", campaign.Name), zap.Error(err))
				continue
			}
			watched++
		}
	}
	w.logger.Info("watching findings", zap.Int("directories", watched), zap.Duration("debounce", w.debounce))

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := make([]bool, len(campaigns))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			idx, err := strconv.Atoi(ev.Tag)
			if err != nil || idx < 0 || idx >= len(campaigns) {
				continue
			}
			if base := filepath.Base(ev.Path); base == findings.CrashesDir || base == findings.HangsDir {
				// crashes/ or hangs/ created after the watch started
				if info, err := os.Stat(ev.Path); err == nil && info.IsDir() {
					if err := wd.AddDir(ev.Path, ev.Tag); err != nil {
						w.logger.Debug("not watching directory", zap.String("dir", ev.Path), zap.Error(err))
					}
				}
			}
			pending[idx] = true
			timer.Reset(w.debounce)
		case <-timer.C:
			for i, dirty := range pending {
				if !dirty {
					continue
				}
				pending[i] = false
				w.logger.Debug("findings changed", zap.String("campaign", campaigns[i].Name))
				if err := w.cli.Analyze(ctx, campaigns[i]); err != nil {
					return err
				}
			}
		}
	}
}

// watchDirs lists the existing directories whose entries affect the stats of root.
func (w *Watcher) watchDirs(root string) []string {
	roots := []string{root}
	if w.instances && !findings.IsCampaignRoot(root) {
		if entries, err := os.ReadDir(root); err == nil {
			for _, entry := range entries {
				if entry.IsDir() {
					roots = append(roots, filepath.Join(root, entry.Name()))
				}
			}
		}
	}

	var dirs []string
	for _, r := range roots {
		for _, dir := range []string{r, filepath.Join(r, findings.CrashesDir), filepath.Join(r, findings.HangsDir)} {
			if info, err := os.Stat(dir); err == nil && info.IsDir() {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}
