package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func setupBoltMirror(t *testing.T, compression bool) (*BoltMirror, string) {
	t.Helper()

	tmpDir := t.TempDir()
	mirror, err := NewBoltMirror(filepath.Join(tmpDir, "cache.db"), filepath.Join(tmpDir, "backups"), compression)
	if err != nil {
		t.Fatalf("Failed to create bolt mirror: %v", err)
	}
	t.Cleanup(func() { mirror.Close() })
	return mirror, tmpDir
}

func TestBoltMirror_RoundTripAfterReopen(t *testing.T) {
	for _, compression := range []bool{false, true} {
		t.Run(map[bool]string{false: "Plain", true: "Compressed"}[compression], func(t *testing.T) {
			tmpDir := t.TempDir()
			dbPath := filepath.Join(tmpDir, "cache.db")
			backupPath := filepath.Join(tmpDir, "backups")

			mirror, err := NewBoltMirror(dbPath, backupPath, compression)
			if err != nil {
				t.Fatalf("Failed to create bolt mirror: %v", err)
			}
			c, _ := New(8, mirror)
			want := sampleTimeline()
			if err := c.Put(fp("song"), want); err != nil {
				t.Fatalf("Put failed: %v", err)
			}
			c.Close()

			reopened, err := NewBoltMirror(dbPath, backupPath, compression)
			if err != nil {
				t.Fatalf("Failed to reopen: %v", err)
			}
			defer reopened.Close()

			c2, _ := New(8, reopened)
			if c2.Len() != 1 {
				t.Fatalf("Expected 1 preloaded entry, got %d", c2.Len())
			}
			got, ok := c2.Get(fp("song"))
			if !ok {
				t.Fatal("Expected entry after reopen")
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Round trip mismatch:\n got  %+v\n want %+v", got, want)
			}
		})
	}
}

func TestBoltMirror_LoadStoreDelete(t *testing.T) {
	mirror, _ := setupBoltMirror(t, true)

	if _, ok, err := mirror.Load("missing"); ok || err != nil {
		t.Errorf("Expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := mirror.Store("k", []byte(`{"v":1}`)); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	data, ok, err := mirror.Load("k")
	if err != nil || !ok || string(data) != `{"v":1}` {
		t.Errorf("Unexpected load result %q %v %v", data, ok, err)
	}

	if n, _ := mirror.Stats(); n != 1 {
		t.Errorf("Expected 1 key, got %d", n)
	}

	if err := mirror.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := mirror.Load("k"); ok {
		t.Error("Expected key to be deleted")
	}
}

func TestBoltMirror_RangeAndClear(t *testing.T) {
	mirror, _ := setupBoltMirror(t, false)
	for _, k := range []string{"a", "b", "c"} {
		mirror.Store(k, []byte(k))
	}

	seen := map[string]string{}
	mirror.Range(func(key string, value []byte) bool {
		seen[key] = string(value)
		return true
	})
	if len(seen) != 3 || seen["b"] != "b" {
		t.Errorf("Unexpected range result %v", seen)
	}

	count := 0
	mirror.Range(func(string, []byte) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("Expected range to stop after first entry, got %d", count)
	}

	if err := mirror.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := mirror.Stats(); n != 0 {
		t.Errorf("Expected no keys after clear, got %d", n)
	}
}

func TestBoltMirror_BackupAndRestore(t *testing.T) {
	mirror, _ := setupBoltMirror(t, true)
	c, _ := New(8, mirror)
	c.Put(fp("kept"), sampleTimeline())

	backupPath, err := mirror.Backup()
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("Expected backup file: %v", err)
	}

	backups, err := mirror.ListBackups()
	if err != nil || len(backups) != 1 {
		t.Fatalf("Expected 1 backup, got %d (%v)", len(backups), err)
	}

	c.Clear()
	c.Put(fp("later"), sampleTimeline())

	if err := mirror.Restore(backups[0].FileName); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if err := c.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	if _, ok := c.Get(fp("kept")); !ok {
		t.Error("Expected restored entry")
	}
	if _, ok := c.Get(fp("later")); ok {
		t.Error("Expected entry written after the backup to be gone")
	}

	if err := mirror.DeleteBackup(backups[0].FileName); err != nil {
		t.Fatalf("DeleteBackup failed: %v", err)
	}
	if backups, _ := mirror.ListBackups(); len(backups) != 0 {
		t.Errorf("Expected no backups, got %d", len(backups))
	}
}

func TestBoltMirror_InvalidBackupNames(t *testing.T) {
	mirror, _ := setupBoltMirror(t, false)

	tests := []string{"missing.db", "../cache.db", "notes.txt"}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			if err := mirror.Restore(name); err == nil {
				t.Error("Expected restore error")
			}
			if err := mirror.DeleteBackup(name); err == nil {
				t.Error("Expected delete error")
			}
		})
	}
}

func TestNewRedisMirror_Unreachable(t *testing.T) {
	_, err := NewRedisMirror(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond}, "", 0)
	if err == nil {
		t.Error("Expected connection error for unreachable redis")
	}
}
