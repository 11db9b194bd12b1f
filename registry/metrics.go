package registry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// These gauges expose per-chain node health for scraping — live and
// blacklisted node counts and the lowest average response time among
// live nodes — keyed by chain id. promauto registers them with the
// default Prometheus registerer when the package loads, and every
// Chain.Select call updates them; no per-Chain setting turns them off.
var (
	liveNodesGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trustrpc",
		Subsystem: "registry",
		Name:      "live_nodes",
		Help:      "Number of nodes currently eligible for selection (deposit above floor, not blacklisted).",
	}, []string{"chain_id"})

	blacklistedNodesGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trustrpc",
		Subsystem: "registry",
		Name:      "blacklisted_nodes",
		Help:      "Number of nodes currently blacklisted.",
	}, []string{"chain_id"})

	avgResponseMillisGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trustrpc",
		Subsystem: "registry",
		Name:      "avg_response_millis",
		Help:      "Rolling average response time of the node with the lowest observed latency.",
	}, []string{"chain_id"})
)

// reportHealth updates the liveness gauges from a freshly computed
// liveNodes result, called from Select so the exported metrics always
// reflect the state the last selection round actually observed.
func (c *Chain) reportHealth(live []candidate, blacklisted int) {
	chainID := strconv.FormatUint(c.ChainID, 10)
	liveNodesGauge.WithLabelValues(chainID).Set(float64(len(live)))
	blacklistedNodesGauge.WithLabelValues(chainID).Set(float64(blacklisted))

	best := -1.0
	for _, cand := range live {
		w := c.weights[cand.index]
		avg := w.avgResponseMillis()
		if best < 0 || avg < best {
			best = avg
		}
	}
	if best >= 0 {
		avgResponseMillisGauge.WithLabelValues(chainID).Set(best)
	}
}
