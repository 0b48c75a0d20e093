package test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"pastebox/cfg"
	"pastebox/svc/api"
	"pastebox/svc/cache"
	"pastebox/svc/db"
	"pastebox/svc/svc"
	"pastebox/svc/util"
)

var (
	envLoadOnce sync.Once
	envLoadErr  error
)

// loadTestEnv picks up an optional .env.test so local runs can point the
// suite at different settings. Absence is not an error.
func loadTestEnv() error {
	envLoadOnce.Do(func() {
		paths := []string{
			".env.test",
			"../.env.test",
		}
		for _, p := range paths {
			if absPath, err := filepath.Abs(p); err == nil {
				if _, err := os.Stat(absPath); err == nil {
					if err := godotenv.Load(absPath); err == nil {
						return
					}
				}
			}
		}
	})
	return envLoadErr
}

func createTestConfig() *cfg.Cfg {
	_ = loadTestEnv()

	c, err := cfg.Load()
	if err != nil {
		c = &cfg.Cfg{
			DBQueryTimeout: 5 * time.Second,
			CacheTTL:       24 * time.Hour,
		}
	}

	c.Port = "0"
	c.Environment = "test"
	c.LogLevel = "error"
	c.RedisURL = ""
	c.LRUCacheSize = 1000
	c.MaxPasteSize = 1024 * 1024
	c.RecentListSize = 10
	c.ContextTimeout = 5 * time.Second

	return c
}

// createTestDB opens a file-backed store in a per-test temp dir. The DSN
// sets the busy timeout on every pooled connection so concurrent writers
// queue on the WAL write lock instead of failing fast.
func createTestDB(t *testing.T, c *cfg.Cfg) *db.SQLite {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "pastebox_test.db") + "?_busy_timeout=5000&_journal_mode=WAL"

	maxOpenConns := c.DBMaxOpenConns
	if maxOpenConns == 0 {
		maxOpenConns = 25
	}
	maxIdleConns := c.DBMaxIdleConns
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	queryTimeout := c.DBQueryTimeout
	if queryTimeout == 0 {
		queryTimeout = 5 * time.Second
	}

	sqlDB, err := db.NewSQLiteWithConfig(dsn, maxOpenConns, maxIdleConns, queryTimeout)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return sqlDB
}

func createTestLRU(t *testing.T, size int) *cache.LRU {
	t.Helper()
	lru, err := cache.NewLRU(size)
	if err != nil {
		t.Fatal(err)
	}
	return lru
}

func createTestService(t *testing.T, c *cfg.Cfg, sqlDB *db.SQLite) *svc.Paste {
	t.Helper()
	util.InitLog("error", false)
	return svc.NewPaste(sqlDB, createTestLRU(t, c.LRUCacheSize), nil, util.NewIDGenerator(nil), c)
}

// startTestServer runs the full HTTP stack against a real listener and
// returns the base URL plus the database handle for fault injection.
func startTestServer(t *testing.T, c *cfg.Cfg) (*httptest.Server, *db.SQLite) {
	t.Helper()
	util.InitLog("error", false)
	sqlDB := createTestDB(t, c)
	pasteSvc := svc.NewPaste(sqlDB, createTestLRU(t, c.LRUCacheSize), nil, util.NewIDGenerator(nil), c)
	ts := httptest.NewServer(api.NewServer(c, pasteSvc, sqlDB, nil))
	t.Cleanup(ts.Close)
	return ts, sqlDB
}

// testClient does not follow redirects so tests can observe the 303 from
// POST /create directly.
var testClient = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
	Timeout: 30 * time.Second,
}

func createPasteHTTP(t *testing.T, baseURL, content string) string {
	t.Helper()
	id, err := tryCreatePaste(baseURL, content)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func tryCreatePaste(baseURL, content string) (string, error) {
	resp, err := testClient.PostForm(baseURL+"/create", url.Values{"content": {content}})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusSeeOther {
		return "", fmt.Errorf("create returned %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	loc := resp.Header.Get("Location")
	if !strings.HasPrefix(loc, "/paste/") {
		return "", fmt.Errorf("unexpected redirect target %q", loc)
	}
	return strings.TrimPrefix(loc, "/paste/"), nil
}

func fetchRaw(t *testing.T, baseURL, id string) (int, string) {
	t.Helper()
	resp, err := testClient.Get(baseURL + "/raw/" + id)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}
