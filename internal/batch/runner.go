// Package batch runs the delta.snow model over many station series at once.
// Every series is an independent model run; the runner only bounds how many
// run at the same time.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chrissnell/deltasnow/internal/hsfilter"
	"github.com/chrissnell/deltasnow/pkg/deltasnow"
	"github.com/chrissnell/deltasnow/pkg/fixture"
)

// Runner runs the model for a set of stations
type Runner struct {
	Params        deltasnow.Params
	Workers       int
	DespikeKernel int
	Smoothing     *hsfilter.SmoothingParams // nil disables smoothing
	Logger        *zap.SugaredLogger
}

// Batch is the outcome of one Run
type Batch struct {
	ID       string
	Results  []fixture.StationResult
	Duration time.Duration
}

// Run models every station and returns the results in input order. The
// first failing station cancels the stations not yet started and its error
// is returned, wrapped with the station key.
func (r *Runner) Run(ctx context.Context, stations []fixture.Station) (*Batch, error) {
	if len(stations) == 0 {
		return nil, errors.New("no stations to run")
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	id := uuid.New().String()
	logger = logger.With("run_id", id)

	model, err := deltasnow.New(r.Params, deltasnow.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	workers := r.Workers
	if workers < 1 {
		workers = 1
	}

	logger.Infow("starting batch", "stations", len(stations), "workers", workers)
	start := time.Now()

	results := make([]fixture.StationResult, len(stations))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, station := range stations {
		i, station := i, station
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			obs, err := r.filter(station.Observations)
			if err != nil {
				return fmt.Errorf("station %s: %w", station.Key(), err)
			}

			res, err := model.Run(obs)
			if err != nil {
				return fmt.Errorf("station %s: %w", station.Key(), err)
			}

			station.Observations = obs
			results[i] = fixture.StationResult{Station: station, SWE: res}
			logger.Debugw("station finished", "station", station.Key(), "records", res.Len(), "resolution", res.Resolution)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warnw("batch failed", "error", err)
		return nil, err
	}

	b := &Batch{ID: id, Results: results, Duration: time.Since(start)}
	logger.Infow("batch finished", "stations", len(results), "duration", b.Duration)
	return b, nil
}

func (r *Runner) filter(obs []deltasnow.Observation) ([]deltasnow.Observation, error) {
	obs, err := hsfilter.Despike(obs, r.DespikeKernel)
	if err != nil {
		return nil, err
	}
	if r.Smoothing != nil {
		return hsfilter.Smooth(obs, *r.Smoothing)
	}
	return obs, nil
}
