package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "simple_weather"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	settingWrites      *prom.CounterVec
	settingChanged     *prom.CounterVec
	dateChanges        *prom.CounterVec
	generationDuration *prom.HistogramVec
	displayPushes      *prom.CounterVec
	versionGate        prom.Gauge
	displayClients     prom.Gauge
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
// A nil reg gets a fresh registry.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		settingWrites: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "setting_writes_total",
			Help:      "Setting writes by key and result",
		}, []string{"key", "result"}),
		settingChanged: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "setting_changed_total",
			Help:      "Setting change notifications received by key",
		}, []string{"key"}),
		dateChanges: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "date_changes_total",
			Help:      "Date-changed events by outcome",
		}, []string{"outcome"}),
		generationDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Duration of weather generation including the settings write",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		displayPushes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "display_pushes_total",
			Help:      "Display updates by kind",
		}, []string{"kind"}),
		versionGate: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "version_gate_passed",
			Help:      "1 when the calendar dependency satisfied the minimum version",
		}),
		displayClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "display_clients",
			Help:      "Connected display viewers",
		}),
	}
	reg.MustRegister(pr.settingWrites, pr.settingChanged, pr.dateChanges, pr.generationDuration,
		pr.displayPushes, pr.versionGate, pr.displayClients)
	return pr
}

func (p *PrometheusRecorder) IncSettingWrite(key string, result ResultLabel) {
	if p == nil {
		return
	}
	p.settingWrites.WithLabelValues(key, string(result)).Inc()
}

func (p *PrometheusRecorder) IncSettingChanged(key string) {
	if p == nil {
		return
	}
	p.settingChanged.WithLabelValues(key).Inc()
}

func (p *PrometheusRecorder) IncDateChange(outcome DateOutcome) {
	if p == nil {
		return
	}
	p.dateChanges.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveGenerationDuration(d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := ResultFailed
	if success {
		res = ResultSuccess
	}
	p.generationDuration.WithLabelValues(string(res)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDisplayPush(kind string) {
	if p == nil {
		return
	}
	p.displayPushes.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetVersionGate(passed bool) {
	if p == nil {
		return
	}
	v := 0.0
	if passed {
		v = 1
	}
	p.versionGate.Set(v)
}

func (p *PrometheusRecorder) SetDisplayClients(n int) {
	if p == nil {
		return
	}
	p.displayClients.Set(float64(n))
}
