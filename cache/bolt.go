package cache

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lyrics-sync-go/logcolors"
	"lyrics-sync-go/utils"

	log "github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

const bucketName = "timelines"

var errStopRange = errors.New("stop range")

// BoltMirror persists cache entries in a bbolt file, optionally gzip compressed
type BoltMirror struct {
	mu                 sync.RWMutex
	db                 *bolt.DB
	dbPath             string
	backupPath         string
	compressionEnabled bool
}

// NewBoltMirror opens (or creates) the database at dbPath
func NewBoltMirror(dbPath, backupPath string, compressionEnabled bool) (*BoltMirror, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := os.MkdirAll(backupPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	if info, err := os.Stat(dbPath); err == nil {
		log.Infof("%s Found existing database file at: %s (size: %d bytes)", logcolors.LogCacheInit, dbPath, info.Size())
	} else {
		log.Infof("%s Creating new database file at: %s", logcolors.LogCacheInit, dbPath)
	}

	m := &BoltMirror{
		dbPath:             dbPath,
		backupPath:         backupPath,
		compressionEnabled: compressionEnabled,
	}
	if err := m.open(); err != nil {
		return nil, err
	}

	log.Infof("%s Bolt mirror initialized at %s (compression: %v)", logcolors.LogCacheInit, dbPath, compressionEnabled)
	return m, nil
}

func (m *BoltMirror) open() error {
	db, err := bolt.Open(m.dbPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create cache bucket: %w", err)
	}

	m.db = db
	return nil
}

// Name identifies the mirror in logs and stats
func (m *BoltMirror) Name() string {
	return "bolt"
}

// Load reads key, decompressing it if needed
func (m *BoltMirror) Load(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var data []byte
	err := m.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(bucketName)).Get([]byte(key)); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || data == nil {
		return nil, false, err
	}
	if utils.IsCompressed(data) {
		if data, err = utils.DecompressBytes(data); err != nil {
			return nil, false, fmt.Errorf("failed to decompress entry %s: %w", key, err)
		}
	}
	return data, true, nil
}

// Store writes value under key, compressing it if enabled
func (m *BoltMirror) Store(key string, value []byte) error {
	if m.compressionEnabled {
		compressed, err := utils.CompressBytes(value)
		if err != nil {
			return fmt.Errorf("failed to compress entry %s: %w", key, err)
		}
		value = compressed
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Put([]byte(key), value)
	})
}

// Delete removes key
func (m *BoltMirror) Delete(key string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete([]byte(key))
	})
}

// Clear removes all entries
func (m *BoltMirror) Clear() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Range iterates over all entries, decompressing as needed. Entries that fail
// to decompress are skipped.
func (m *BoltMirror) Range(fn func(key string, value []byte) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	err := m.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(k, v []byte) error {
			data := v
			if utils.IsCompressed(v) {
				decompressed, err := utils.DecompressBytes(v)
				if err != nil {
					log.Warnf("%s Skipping unreadable entry %s: %v", logcolors.LogCacheMirror, k, err)
					return nil
				}
				data = decompressed
			} else {
				// bbolt values are only valid inside the transaction
				data = append([]byte(nil), v...)
			}
			if !fn(string(k), data) {
				return errStopRange
			}
			return nil
		})
	})
	if errors.Is(err, errStopRange) {
		return nil
	}
	return err
}

// Stats returns the entry count and on-disk size in KB
func (m *BoltMirror) Stats() (numKeys int, sizeKB int64) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	m.db.View(func(tx *bolt.Tx) error {
		numKeys = tx.Bucket([]byte(bucketName)).Stats().KeyN
		sizeKB = tx.Size() / 1024
		return nil
	})
	return numKeys, sizeKB
}

// Backup writes a consistent copy of the database into the backup directory
// and returns its path
func (m *BoltMirror) Backup() (string, error) {
	timestamp := time.Now().Format("2006-01-02_15-04-05.000")
	backupFilePath := filepath.Join(m.backupPath, fmt.Sprintf("cache_backup_%s.db", timestamp))

	log.Infof("%s Creating backup at: %s", logcolors.LogCacheBackup, backupFilePath)

	m.mu.RLock()
	defer m.mu.RUnlock()

	err := m.db.View(func(tx *bolt.Tx) error {
		return tx.CopyFile(backupFilePath, 0600)
	})
	if err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	log.Infof("%s Backup created successfully: %s", logcolors.LogCacheBackup, backupFilePath)
	return backupFilePath, nil
}

// BackupInfo contains metadata about a backup file
type BackupInfo struct {
	FileName  string    `json:"fileName"`
	FilePath  string    `json:"filePath"`
	Size      int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListBackups returns all backup files
func (m *BoltMirror) ListBackups() ([]BackupInfo, error) {
	var backups []BackupInfo

	entries, err := os.ReadDir(m.backupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return backups, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".db" {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Warnf("%s Failed to get info for %s: %v", logcolors.LogCacheBackup, entry.Name(), err)
			continue
		}

		backups = append(backups, BackupInfo{
			FileName:  entry.Name(),
			FilePath:  filepath.Join(m.backupPath, entry.Name()),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	return backups, nil
}

func (m *BoltMirror) backupFile(name string) (string, error) {
	if filepath.Base(name) != name || filepath.Ext(name) != ".db" {
		return "", fmt.Errorf("invalid backup file: must be a .db file name")
	}
	path := filepath.Join(m.backupPath, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("backup file not found: %s", name)
	}
	return path, nil
}

// Restore replaces the database with the named backup. The previous file is
// kept until the copy succeeds.
func (m *BoltMirror) Restore(name string) error {
	backupFilePath, err := m.backupFile(name)
	if err != nil {
		return err
	}

	log.Infof("%s Starting restore from backup: %s", logcolors.LogCacheRestore, name)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.db.Close(); err != nil {
		return fmt.Errorf("failed to close current database: %w", err)
	}

	preRestore := m.dbPath + ".pre-restore"
	if err := copyFile(m.dbPath, preRestore); err != nil {
		m.open()
		return fmt.Errorf("failed to backup current database: %w", err)
	}

	if err := copyFile(backupFilePath, m.dbPath); err != nil {
		copyFile(preRestore, m.dbPath)
		m.open()
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	os.Remove(preRestore)

	if err := m.open(); err != nil {
		return fmt.Errorf("failed to reopen database after restore: %w", err)
	}

	log.Infof("%s Successfully restored from backup: %s", logcolors.LogCacheRestore, name)
	return nil
}

// DeleteBackup deletes a backup file
func (m *BoltMirror) DeleteBackup(name string) error {
	path, err := m.backupFile(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete backup: %w", err)
	}
	log.Infof("%s Deleted backup: %s", logcolors.LogCacheBackup, name)
	return nil
}

func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// Close closes the database
func (m *BoltMirror) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
