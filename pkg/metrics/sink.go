// Package metrics mirrors recorded benchmark results into InfluxDB, for
// teams that already graph CI data there. The sink is strictly optional:
// the pipeline only reaches it after the durable write succeeded.
package metrics

import (
	"time"

	client "github.com/influxdata/influxdb1-client/v2"
	"github.com/pkg/errors"

	"github.com/benchwatch/benchwatch/pkg/bench"
)

// Sink writes benchmark points to a single InfluxDB database.
type Sink struct {
	cl client.Client
	db string
}

// NewSink connects to the InfluxDB HTTP endpoint.
func NewSink(endpoint, database string) (*Sink, error) {
	cl, err := client.NewHTTPClient(client.HTTPConfig{Addr: endpoint})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to connect to influxdb at %s", endpoint)
	}
	if database == "" {
		database = "benchwatch"
	}
	return &Sink{cl: cl, db: database}, nil
}

// RecordRun emits one point per benchmark result, timestamped with the
// run's recording time.
func (s *Sink) RecordRun(suite string, run bench.Run) error {
	bp, err := client.NewBatchPoints(client.BatchPointsConfig{Database: s.db})
	if err != nil {
		return errors.Wrap(err, "unable to create influxdb batch")
	}

	ts := time.UnixMilli(run.Date)
	for _, b := range run.Benches {
		tags := map[string]string{
			"suite":  suite,
			"tool":   string(run.Tool),
			"name":   b.Name,
			"unit":   b.Unit,
			"commit": run.Commit.ID,
		}
		fields := map[string]interface{}{"value": b.Value}
		pt, err := client.NewPoint("benchmark", tags, fields, ts)
		if err != nil {
			return errors.Wrapf(err, "unable to build point for %s", b.Name)
		}
		bp.AddPoint(pt)
	}

	return errors.Wrap(s.cl.Write(bp), "unable to write benchmark points to influxdb")
}

// Close releases the underlying HTTP client.
func (s *Sink) Close() error {
	return s.cl.Close()
}
