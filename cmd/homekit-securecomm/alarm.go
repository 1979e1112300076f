package main

import (
	"context"
	"net/http"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/caarlos0/securecomm"
)

type SecuritySystem struct {
	*accessory.A
	SecuritySystem *service.SecuritySystem
	Fault          *characteristic.StatusFault

	cfg     Config
	execute Executor
}

func NewSecuritySystem(info accessory.Info, cfg Config, execute Executor) *SecuritySystem {
	a := &SecuritySystem{
		cfg:     cfg,
		execute: execute,
	}
	a.A = accessory.New(info, accessory.TypeSecuritySystem)

	a.SecuritySystem = service.NewSecuritySystem()
	a.AddS(a.SecuritySystem.S)

	a.Fault = characteristic.NewStatusFault()
	a.SecuritySystem.AddC(a.Fault.C)

	a.SecuritySystem.SecuritySystemTargetState.SetValueRequestFunc = a.updateHandler

	return a
}

func (a *SecuritySystem) Update(status securecomm.Status) {
	state := a.cfg.getAlarmState(status)
	armStateGauge.Set(float64(status.State()))
	if state >= 0 && a.SecuritySystem.SecuritySystemCurrentState.Value() != state {
		err := a.SecuritySystem.SecuritySystemCurrentState.SetValue(state)
		log.Info("set current state", "state", state, "panel", status.State(), "err", err)
	}
	if a.Fault.Value() != 0 {
		_ = a.Fault.SetValue(0)
	}
}

// Unreachable flags the accessory as faulted when the panel cannot be polled.
func (a *SecuritySystem) Unreachable() {
	if a.Fault.Value() != 1 {
		_ = a.Fault.SetValue(1)
	}
}

func (a *SecuritySystem) updateHandler(
	v interface{},
	_ *http.Request,
) (response interface{}, code int) {
	target, ok := v.(int)
	if !ok {
		return nil, hap.JsonStatusInvalidValueInRequest
	}

	if target == characteristic.SecuritySystemTargetStateDisarm {
		log.Info("disarm")
		if err := a.execute(func(ctx context.Context, cli *securecomm.Session) error {
			return cli.Disarm(ctx)
		}); err != nil {
			log.Error("could not disarm", "err", err)
			return nil, hap.JsonStatusResourceBusy
		}
		return nil, hap.JsonStatusSuccess
	}

	mode, ok := a.cfg.armModeFor(target)
	if !ok {
		return nil, hap.JsonStatusResourceDoesNotExist
	}
	log.Info("arm", "target", target, "mode", mode)
	if err := a.execute(func(ctx context.Context, cli *securecomm.Session) error {
		return cli.Arm(ctx, mode)
	}); err != nil {
		log.Error("could not arm", "mode", mode, "err", err)
		return nil, hap.JsonStatusResourceBusy
	}
	return nil, hap.JsonStatusSuccess
}
