package test

import (
	"crypto/rand"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type loadMetrics struct {
	totalRequests int64
	successCount  int64
	errorCount    int64
	latencies     []time.Duration
	mu            sync.Mutex
}

func (m *loadMetrics) recordLatency(d time.Duration) {
	m.mu.Lock()
	m.latencies = append(m.latencies, d)
	m.mu.Unlock()
}

func (m *loadMetrics) percentile(p float64) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(m.latencies))
	copy(sorted, m.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)) * p / 100.0)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func (m *loadMetrics) errorRate() float64 {
	total := atomic.LoadInt64(&m.totalRequests)
	if total == 0 {
		return 0
	}
	return float64(atomic.LoadInt64(&m.errorCount)) / float64(total) * 100
}

func makeCreateRequest(baseURL string, m *loadMetrics, contentSize int) {
	content := make([]byte, contentSize)
	for i := range content {
		content[i] = byte('a' + (i % 26))
	}

	start := time.Now()
	_, err := tryCreatePaste(baseURL, string(content))
	latency := time.Since(start)

	atomic.AddInt64(&m.totalRequests, 1)
	m.recordLatency(latency)
	if err != nil {
		atomic.AddInt64(&m.errorCount, 1)
		return
	}
	atomic.AddInt64(&m.successCount, 1)
}

func TestLoadBurst(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	ts, _ := startTestServer(t, createTestConfig())
	m := &loadMetrics{latencies: make([]time.Duration, 0, 512)}

	const workers = 30
	const perWorker = 10
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				makeCreateRequest(ts.URL, m, 256)
			}
		}()
	}
	wg.Wait()

	if rate := m.errorRate(); rate > 1.0 {
		t.Errorf("error rate %.2f%% exceeds 1%%", rate)
	}
	p99 := m.percentile(99)
	if p99 > 2*time.Second {
		t.Errorf("p99 latency %v exceeds 2s", p99)
	}
	t.Logf("burst: %d requests, %d errors, p50=%v p95=%v p99=%v",
		m.totalRequests, m.errorCount, m.percentile(50), m.percentile(95), p99)
}

func TestLoadReadHeavy(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	ts, _ := startTestServer(t, createTestConfig())
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = createPasteHTTP(t, ts.URL, fmt.Sprintf("read heavy seed %d", i))
	}

	m := &loadMetrics{latencies: make([]time.Duration, 0, 1024)}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := ids[(worker+j)%len(ids)]
				path := "/paste/" + id
				if j%3 == 0 {
					path = "/raw/" + id
				}
				start := time.Now()
				resp, err := testClient.Get(ts.URL + path)
				m.recordLatency(time.Since(start))
				atomic.AddInt64(&m.totalRequests, 1)
				if err != nil {
					atomic.AddInt64(&m.errorCount, 1)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					atomic.AddInt64(&m.errorCount, 1)
				} else {
					atomic.AddInt64(&m.successCount, 1)
				}
			}
		}(i)
	}
	wg.Wait()

	if m.errorCount > 0 {
		t.Errorf("%d of %d reads failed", m.errorCount, m.totalRequests)
	}
	if p95 := m.percentile(95); p95 > time.Second {
		t.Errorf("p95 read latency %v exceeds 1s", p95)
	}
	t.Logf("read heavy: %d requests, p50=%v p95=%v",
		m.totalRequests, m.percentile(50), m.percentile(95))
}

func TestLoadLargeContent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	ts, _ := startTestServer(t, createTestConfig())
	for _, size := range []int{64 * 1024, 256 * 1024, 1024 * 1024} {
		content := make([]byte, size)
		for i := range content {
			content[i] = byte('a' + (i % 26))
		}
		id := createPasteHTTP(t, ts.URL, string(content))
		status, body := fetchRaw(t, ts.URL, id)
		if status != http.StatusOK {
			t.Fatalf("raw fetch of %d byte paste returned %d", size, status)
		}
		if body != string(content) {
			t.Errorf("%d byte paste did not round trip intact", size)
		}
	}
}

func TestLoadBinaryContent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping load test in short mode")
	}

	ts, _ := startTestServer(t, createTestConfig())
	for i := 0; i < 20; i++ {
		raw := make([]byte, 512+i*64)
		if _, err := rand.Read(raw); err != nil {
			t.Fatal(err)
		}
		// framed with letters so whitespace trimming cannot touch the payload
		content := "bin:" + string(raw) + ":end"
		id := createPasteHTTP(t, ts.URL, content)
		status, body := fetchRaw(t, ts.URL, id)
		if status != http.StatusOK {
			t.Fatalf("raw fetch returned %d", status)
		}
		if body != content {
			t.Errorf("binary paste %d did not round trip intact", i)
		}
	}
}
