package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/jonboulle/clockwork"

	"github.com/netgrid-io/netgrid/pkg/bastion"
	"github.com/netgrid-io/netgrid/pkg/config"
	"github.com/netgrid-io/netgrid/pkg/device"
	"github.com/netgrid-io/netgrid/pkg/execution"
	"github.com/netgrid-io/netgrid/pkg/executor"
	"github.com/netgrid-io/netgrid/pkg/job"
	"github.com/netgrid-io/netgrid/pkg/util"
)

// app bundles the wired components every command builds on.
type app struct {
	env         *config.Env
	source      *config.Source
	tunnel      *bastion.Tunnel
	pool        *device.Pool
	broadcaster *job.Broadcaster
	jobs        *job.Manager
	store       *execution.Store
	executor    *executor.Executor
}

// newApp loads the environment and jumphost record and wires the stack.
func newApp(ctx context.Context) (*app, error) {
	if verboseFlag {
		util.SetLogLevel("debug")
	}

	env, err := config.LoadEnv(ctx)
	if err != nil {
		return nil, err
	}
	if !verboseFlag {
		if err := util.SetLogLevel(env.LogLevel); err != nil {
			return nil, err
		}
	}

	source, err := config.NewSource(jumphostPath(env), config.Jumphost{
		Enabled:  env.JumphostEnabled,
		Host:     env.JumphostHost,
		Port:     env.JumphostPort,
		Username: env.JumphostUsername,
		Password: env.JumphostPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("loading jumphost settings: %w", err)
	}

	tunnel := bastion.NewTunnel(source)
	pool := device.NewPool(source, env, tunnel)
	broadcaster := job.NewBroadcaster()
	clock := clockwork.NewRealClock()
	jobs := job.NewManager(clock, broadcaster)
	store := execution.NewStore(env.DataDir)

	return &app{
		env:         env,
		source:      source,
		tunnel:      tunnel,
		pool:        pool,
		broadcaster: broadcaster,
		jobs:        jobs,
		store:       store,
		executor:    executor.New(pool, jobs, store, clock),
	}, nil
}

func jumphostPath(env *config.Env) string {
	return filepath.Join(env.DataDir, "jumphost.json")
}

// close tears down connections held by the app.
func (a *app) close() {
	if err := a.pool.DisconnectAll(); err != nil {
		util.WithField("error", err).Debug("disconnect on shutdown")
	}
}
