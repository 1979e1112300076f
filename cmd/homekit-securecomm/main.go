package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
	"github.com/caarlos0/env/v11"
	"github.com/caarlos0/securecomm"
	logp "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//go:embed index.html
var index []byte

var log = logp.NewWithOptions(os.Stderr, logp.Options{
	ReportTimestamp: true,
	TimeFormat:      time.Kitchen,
	Prefix:          "homekit",
})

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type Executor = func(func(ctx context.Context, cli *securecomm.Session) error) error

const (
	manufacturer   = "HKC"
	requestTimeout = 2 * time.Minute
)

func main() {
	log.Info(
		"homekit-securecomm",
		"version", version,
		"commit", commit,
		"date", date,
		"info", "Homekit bridge for HKC SecureComm alarm systems",
	)

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(
			"could not parse env",
			"err",
			strings.TrimPrefix(strings.ReplaceAll(err.Error(), "; ", "\n"), "env: ")+"\n",
		)
	}
	if cfg.Debug {
		log.SetLevel(logp.DebugLevel)
	}

	revision, err := securecomm.ParseRevision(cfg.Revision)
	if err != nil {
		log.Fatal("invalid configuration", "err", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cli, err := securecomm.New(
		ctx,
		cfg.credentials(),
		securecomm.WithBaseURL(cfg.BaseURL),
		securecomm.WithRevision(revision),
		securecomm.WithTransport(countingTransport{securecomm.NewHTTPTransport(securecomm.DefaultTimeout)}),
		securecomm.WithLogger(log.WithPrefix("securecomm")),
	)
	if err != nil {
		log.Fatal("could not init securecomm session", "err", err)
	}

	var clientLock sync.Mutex
	execute := func(fn func(ctx context.Context, cli *securecomm.Session) error) error {
		t := time.Now()
		clientLock.Lock()
		defer clientLock.Unlock()
		log.Debugf("got client lock after %s", time.Since(t))

		ctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return fn(ctx, cli)
	}

	var (
		status securecomm.Status
		inputs []securecomm.Input
		ok     bool
	)
	if err := execute(func(ctx context.Context, cli *securecomm.Session) (err error) {
		if ok, err = cli.CheckLogin(ctx); err != nil {
			return err
		}
		if status, err = cli.Status(ctx); err != nil {
			return err
		}
		inputs, err = cli.ListInputs(ctx)
		return err
	}); err != nil {
		log.Fatal("could not init accessories", "err", err)
	}
	if !ok {
		log.Fatal("login failed, check the panel id, password and user code")
	}

	zones := cfg.allZones(inputs)
	log.Info(
		"loading accessories",
		"modes",
		strings.Join([]string{
			fmt.Sprintf("stay: %v", cfg.StayMode),
			fmt.Sprintf("away: %v", cfg.AwayMode),
			fmt.Sprintf("night: %v", cfg.NightMode),
		}, "\n"),
		"zones", allZoneConfigs(zones).String(),
		"panel_inputs", len(inputs),
	)

	bridge := accessory.NewBridge(accessory.Info{
		Name:         "Alarm Bridge",
		Manufacturer: manufacturer,
		Firmware:     version,
	})

	alarm := NewSecuritySystem(accessory.Info{
		Name:         "Alarm",
		SerialNumber: fmt.Sprintf("%d", cfg.PanelID),
		Manufacturer: manufacturer,
		Model:        "SecureComm " + revision.Name(),
	}, cfg, execute)
	alarm.Id = 2

	if state := cfg.getAlarmState(status); state >= 0 {
		err := alarm.SecuritySystem.SecuritySystemTargetState.SetValue(state)
		log.Info("set target state", "state", state, "err", err)
	}
	alarm.Update(status)

	sensors := setupZones(cfg, inputs)

	go func() {
		tick := time.NewTicker(cfg.PollInterval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
			}

			var status securecomm.Status
			var inputs []securecomm.Input
			if err := execute(func(ctx context.Context, cli *securecomm.Session) (err error) {
				if status, err = cli.Status(ctx); err != nil {
					return err
				}
				inputs, err = cli.ListInputs(ctx)
				return err
			}); err != nil {
				log.Error("could not get status", "err", err)
				alarm.Unreachable()
				continue
			}

			alarm.Update(status)
			sensors.Update(inputs)
		}
	}()

	fs := hap.NewFsStore("./db")

	server, err := hap.NewServer(
		fs, bridge.A,
		securityAccessories(sensors, alarm)...,
	)
	if err != nil {
		log.Fatal("fail to create server", "error", err)
	}
	server.Addr = cfg.Address
	server.ServeMux().Handle("/metrics", promhttp.Handler())
	server.ServeMux().Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := [5]string{
			"Armed: Stay",
			"Armed: Away",
			"Armed: Night",
			"Disarmed",
			"Alarm Triggered",
		}[alarm.SecuritySystem.SecuritySystemCurrentState.Value()]

		var items []PageItem
		for _, zone := range sensors {
			z := PageItem{
				Number: zone.Number,
				Name:   zone.Name(),
			}
			if zone.Motion != nil {
				z.Open = zone.Motion.MotionDetected.Value()
			} else if zone.Contact != nil {
				z.Open = zone.Contact.ContactSensorState.Value() == 1
			}
			items = append(items, z)
		}

		var logs []securecomm.LogEntry
		if err := execute(func(ctx context.Context, cli *securecomm.Session) (err error) {
			logs, err = cli.FetchLogs(ctx, cfg.LogCount)
			return err
		}); err != nil {
			log.Error("could not fetch logs", "err", err)
		}

		tpl := template.Must(template.New("index").Parse(string(index)))
		_ = tpl.Execute(w, struct {
			State string
			Zones []PageItem
			Logs  []securecomm.LogEntry
		}{
			State: state,
			Zones: items,
			Logs:  logs,
		})
	}))

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	signal.Notify(c, syscall.SIGTERM)

	go func() {
		<-c
		log.Info("stopping server")
		signal.Stop(c)
		cancel()
	}()

	log.Info("starting server", "addr", server.Addr)
	if err := server.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("failed to close server", "err", err)
	}
}

func securityAccessories(
	sensors AlarmSensors,
	alarm *SecuritySystem,
) []*accessory.A {
	result := []*accessory.A{
		alarm.A,
	}
	for _, c := range sensors {
		result = append(result, c.A)
	}
	return result
}

type PageItem struct {
	Number int
	Name   string
	Open   bool
}
