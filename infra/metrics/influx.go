package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/dixie/callvehicle/core/metrics"
	"github.com/dixie/callvehicle/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and returns
// a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.Sink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDispatchOutcome writes the terminal session as a measurement point.
func (s *InfluxSink) RecordDispatchOutcome(out coremetrics.DispatchOutcome) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_session").
		AddTag("requester_id", out.RequesterID).
		AddTag("vehicle_id", out.VehicleID).
		AddTag("state", out.State).
		AddTag("reason", out.Reason).
		AddTag("band", out.Band).
		AddTag("component", "dispatch_manager").
		AddField("distance_km", out.DistanceKm).
		AddField("total_cost", out.TotalCost).
		AddField("elapsed_ms", out.Elapsed.Milliseconds()).
		SetTime(out.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSettlement writes the settlement attempt.
func (s *InfluxSink) RecordSettlement(ev coremetrics.Settlement) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("settlement").
		AddTag("requester_id", ev.RequesterID).
		AddTag("source", ev.Source).
		AddTag("outcome", ev.Outcome).
		AddTag("component", "settler").
		AddField("amount", ev.Amount).
		AddField("errors", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close shuts the underlying client down.
func (s *InfluxSink) Close() {
	s.client.Close()
}
