package metrics
import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)
var (
	PasteCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebox_paste_created_total",
		Help: "no. of pastes created",
	})
	PasteRetrieved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebox_paste_retrieved_total",
		Help: "no. of pastes retrieved",
	})
	PasteListed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebox_paste_listed_total",
		Help: "no. of recent-paste listings served",
	})
	IDCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebox_id_collisions_total",
		Help: "no. of id collisions hit during create retries",
	})
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebox_cache_hits_total",
		Help: "no. of cache hits",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pastebox_cache_misses_total",
		Help: "no. of cache misses",
	})
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pastebox_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status"},
	)
)
func Init() {
}
