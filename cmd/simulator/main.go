// Cartotrack - Live Device Telemetry and Position Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartotrack

// Command simulator drives a Cartotrack server with a fake device.
//
// It posts a jittered track to /telemetry at a fixed interval:
//
//	simulator -url http://localhost:3001 -key $DEVICE_API_KEY -device truck-1
//
// With -watch it instead connects to /ws and prints every location event,
// which is handy for checking a deployment end to end.
//
// Flags default from SIM_URL, DEVICE_API_KEY and DEVICE_ID.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/cartotrack/internal/logging"
)

type options struct {
	url      string
	apiKey   string
	deviceID string
	interval time.Duration
	count    int
	lat, lng float64
	jitter   float64
	seed     uint64
	watch    bool
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("simulator", flag.ContinueOnError)
	o := &options{}
	fs.StringVar(&o.url, "url", envOr("SIM_URL", "http://localhost:3001"), "server base URL")
	fs.StringVar(&o.apiKey, "key", envOr("DEVICE_API_KEY", ""), "device API key")
	fs.StringVar(&o.deviceID, "device", envOr("DEVICE_ID", "truck-1"), "device ID")
	fs.DurationVar(&o.interval, "interval", 2*time.Second, "time between reports")
	fs.IntVar(&o.count, "count", 0, "reports to send, 0 for unlimited")
	fs.Float64Var(&o.lat, "lat", defaultStartLat, "start latitude")
	fs.Float64Var(&o.lng, "lng", defaultStartLng, "start longitude")
	fs.Float64Var(&o.jitter, "jitter", defaultJitter, "per-step jitter in degrees")
	fs.Uint64Var(&o.seed, "seed", uint64(time.Now().UnixNano()), "random seed")
	fs.BoolVar(&o.watch, "watch", false, "print live updates from /ws instead of sending")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	o.url = strings.TrimRight(o.url, "/")
	return o, nil
}

func main() {
	logging.Init(logging.Config{Level: envOr("LOG_LEVEL", "info"), Format: "console", Timestamp: true})

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logging.Fatal().Err(err).Msg("Invalid flags")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.watch {
		err = watch(ctx, opts.url)
	} else {
		err = simulate(ctx, opts, &http.Client{Timeout: 10 * time.Second})
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Simulator stopped")
		os.Exit(1)
	}
}

// simulate sends reports until ctx is done or opts.count is reached.
// Send failures are logged and the walk continues.
func simulate(ctx context.Context, opts *options, client *http.Client) error {
	track := NewTrack(opts.deviceID, opts.lat, opts.lng, opts.jitter, opts.seed)
	limiter := rate.NewLimiter(rate.Every(opts.interval), 1)
	endpoint := opts.url + "/telemetry"

	var last time.Time
	for sent := 0; opts.count == 0 || sent < opts.count; sent++ {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		now := time.Now()
		var elapsed time.Duration
		if !last.IsZero() {
			elapsed = now.Sub(last)
		}
		last = now

		report := track.Next(now, elapsed)
		if err := send(ctx, client, endpoint, opts.apiKey, report); err != nil {
			logging.Warn().Err(err).Str("device_id", report.DeviceID).Msg("Report not accepted")
			continue
		}
		logging.Info().
			Str("device_id", report.DeviceID).
			Float64("lat", report.Lat).
			Float64("lng", report.Lng).
			Msg("sent")
	}
	return nil
}

func send(ctx context.Context, client *http.Client, endpoint, apiKey string, report Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s: %d %s", endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
