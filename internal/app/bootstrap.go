package app

import (
	"wordtally/internal/config"
	"wordtally/internal/runtime/supervisor"
)

// ---- Config ----

type Config = config.Config

var LoadConfig = config.Load

// ---- Runtime ----

type Supervisor = supervisor.Supervisor

var NewSupervisor = supervisor.NewSupervisor

var WithLogger = supervisor.WithLogger

var WithCancelOnError = supervisor.WithCancelOnError
