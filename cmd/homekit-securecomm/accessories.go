package main

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"
	"github.com/caarlos0/securecomm"
)

type AlarmSensors []*AlarmSensor

// Update sets each sensor from the input with the same number. Sensors
// without a matching input are left as they are.
func (sensors AlarmSensors) Update(inputs []securecomm.Input) {
	byNumber := make(map[int]securecomm.Input, len(inputs))
	for _, in := range inputs {
		byNumber[in.Input] = in
	}
	for _, sensor := range sensors {
		in, ok := byNumber[sensor.Number]
		if !ok {
			log.Debug("zone not listed by panel", "zone", sensor.Number)
			continue
		}
		sensor.Update(in)
	}
}

type AlarmSensor struct {
	*accessory.A
	Number  int
	Kind    zoneKind
	Motion  *service.MotionSensor
	Contact *service.ContactSensor
}

func (sensor *AlarmSensor) Update(input securecomm.Input) {
	activeGauge.WithLabelValues(sensor.Name()).Set(boolToFloat(input.IsActive()))
	inhibitedGauge.WithLabelValues(sensor.Name()).Set(boolToFloat(input.ActionInhibit))

	switch sensor.Kind {
	case kindContact:
		current := boolToInt(input.IsActive())
		if v := sensor.Contact.ContactSensorState.Value(); v == current {
			return
		}
		_ = sensor.Contact.ContactSensorState.SetValue(current)
		log.Info(
			"contact",
			"zone", input.Input,
			"status", current,
			"state", input.InputState,
		)
	case kindMotion:
		current := input.IsActive()
		if v := sensor.Motion.MotionDetected.Value(); v == current {
			return
		}
		sensor.Motion.MotionDetected.SetValue(current)
		log.Info(
			"motion",
			"zone", input.Input,
			"status", current,
			"state", input.InputState,
		)
	}
}

func newAlarmSensor(info accessory.Info, zone zoneConfig) *AlarmSensor {
	a := AlarmSensor{
		Number: zone.number,
		Kind:   zone.kind,
	}
	a.A = accessory.New(info, accessory.TypeSensor)

	switch zone.kind {
	case kindContact:
		a.Contact = service.NewContactSensor()
		a.AddS(a.Contact.S)
	case kindMotion:
		a.Motion = service.NewMotionSensor()
		a.AddS(a.Motion.S)
	}

	return &a
}

func setupZones(cfg Config, inputs []securecomm.Input) AlarmSensors {
	var sensors AlarmSensors
	for i, zone := range cfg.allZones(inputs) {
		a := newAlarmSensor(accessory.Info{
			Name:         zone.name,
			Manufacturer: manufacturer,
		}, zone)
		a.Id = uint64(100 + i)
		sensors = append(sensors, a)
	}
	sensors.Update(inputs)
	return sensors
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
