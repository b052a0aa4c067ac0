package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/ui"
	"github.com/muurk/wifictl/internal/wifi"
)

// localScan runs one scan on p and returns the networks seen, strongest
// first. The manager is torn down before returning.
func localScan(ctx context.Context, p wifi.Platform, log *zap.Logger) ([]wifi.ApRecord, error) {
	m, err := wifi.New(wifi.Config{Platform: p, Logger: log})
	if err != nil {
		return nil, err
	}
	defer m.Close()

	completed := make(chan wifi.ApScanCompleted, 1)
	m.Subscribe(func(ev wifi.Event) {
		if done, ok := ev.(wifi.ApScanCompleted); ok {
			select {
			case completed <- done:
			default:
			}
		}
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = m.Run(ctx)
	}()
	defer func() {
		cancel()
		<-runDone
	}()

	if err := m.StartScan(); err != nil {
		return nil, fmt.Errorf("failed to start scan: %w", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case done := <-completed:
		if done.Failed {
			return nil, errors.New("scan failed")
		}
	}

	_, records := m.ScanResults()
	ui.SortByRSSI(records)
	return records, nil
}
