package crash

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"protofuzz/internal/types"
	"protofuzz/pkg/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CrashManager copies crash inputs into a content-addressed archive:
// <archive>/<campaign>/<md5 of the input>. When a database is configured,
// every newly archived input is recorded as a bug.
type CrashManager struct {
	db     *gorm.DB
	logger *zap.Logger

	crashFolder string
	crashChan   chan types.CrashMessage
	done        chan struct{}
	stopOnce    sync.Once

	mu       sync.Mutex
	archived int
	dupes    int
}

// NewCrashManager creates the archive folder. db may be nil.
func NewCrashManager(crashFolder string, db *gorm.DB, logger *zap.Logger) (*CrashManager, error) {
	if err := os.MkdirAll(crashFolder, 0755); err != nil {
		return nil, fmt.Errorf("failed to create crash folder: %w", err)
	}
	return &CrashManager{
		db:          db,
		logger:      logger,
		crashFolder: crashFolder,
		crashChan:   make(chan types.CrashMessage, 1024),
		done:        make(chan struct{}),
	}, nil
}

func (c *CrashManager) Folder() string { return c.crashFolder }

// Start processes submitted crashes in the background until Stop.
func (c *CrashManager) Start() {
	c.logger.Debug("starting crash manager", zap.String("folder", c.crashFolder))
	go c.start()
}

// Submit queues a crash for archiving. It must not be called after Stop.
func (c *CrashManager) Submit(msg types.CrashMessage) {
	c.crashChan <- msg
}

// Stop waits until every submitted crash has been processed.
func (c *CrashManager) Stop() {
	c.stopOnce.Do(func() {
		c.logger.Debug("closing crash channel")
		close(c.crashChan)
	})
	<-c.done
}

// Counts returns how many inputs were archived and how many were already there.
func (c *CrashManager) Counts() (archived, duplicates int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.archived, c.dupes
}

func (c *CrashManager) start() {
	defer close(c.done)
	for crash := range c.crashChan {
		if _, err := c.processCrashFile(context.Background(), crash); err != nil {
			c.logger.Error("failed to process crash file", zap.String("file", crash.CrashFile), zap.Error(err))
		}
	}
}

// processCrashFile archives a single crash file and returns its archive path.
func (c *CrashManager) processCrashFile(ctx context.Context, msg types.CrashMessage) (string, error) {
	crashStore := filepath.Join(c.crashFolder, StoreName(msg.Campaign))
	if err := os.MkdirAll(crashStore, 0755); err != nil {
		return "", fmt.Errorf("failed to create crash store directory: %w", err)
	}

	crashData, err := os.ReadFile(msg.CrashFile)
	if err != nil {
		return "", fmt.Errorf("failed to read crash file: %w", err)
	}
	crashMd5 := md5.Sum(crashData)
	digest := hex.EncodeToString(crashMd5[:])
	crashPath := filepath.Join(crashStore, digest)

	if _, err := os.Stat(crashPath); err == nil {
		c.mu.Lock()
		c.dupes++
		c.mu.Unlock()
		c.logger.Debug("crash already archived", zap.String("file", msg.CrashFile), zap.String("digest", digest))
		return crashPath, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to stat archived crash: %w", err)
	}

	if err := os.WriteFile(crashPath, crashData, 0644); err != nil {
		return "", fmt.Errorf("failed to write crash file: %w", err)
	}
	c.mu.Lock()
	c.archived++
	c.mu.Unlock()

	if c.db == nil {
		return crashPath, nil
	}
	bug := database.NewBug(msg.RunID, msg.Campaign, crashPath, digest, msg.Code)
	if err := database.AddBugs(ctx, c.db, []*database.Bug{bug}); err != nil {
		return crashPath, fmt.Errorf("failed to add bug: %w", err)
	}
	return crashPath, nil
}

// StoreName turns a campaign name into a directory name: "Redis Protocol" -> "redis_protocol".
func StoreName(campaign string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '_'
	}, campaign)
	if strings.Trim(name, "._") == "" {
		return "campaign"
	}
	return name
}
