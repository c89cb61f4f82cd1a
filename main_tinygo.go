//go:build tinygo

package main

import (
	"machine"

	"adbridge/app"
	"adbridge/blehid"
	"adbridge/blehid/radio"
	"adbridge/hal"
)

// Board wiring.
const (
	adbBusPin    = machine.D2
	bondBtnPin   = machine.D5
	oledAddr     = 0x3C
	i2cFrequency = 400 * machine.KHz
)

func main() {
	logger := hal.NewUARTLogger(machine.DefaultUART)

	machine.I2C0.Configure(machine.I2CConfig{Frequency: i2cFrequency})

	sys := app.System{
		Pin:        hal.NewMachineBusPin(adbBusPin),
		Logger:     logger,
		Clock:      hal.NewTickClock(),
		Display:    hal.NewOLEDDisplay(machine.I2C0, oledAddr),
		BondButton: hal.NewPinButton(bondBtnPin),
		Radio:      radio.New(),
	}

	a := app.New(sys, app.Config{BLE: blehid.Config{}})

	stop := make(chan struct{})
	if err := a.Start(stop); err != nil {
		logger.WriteLineString("[INIT] fatal: " + err.Error())
		for {
		}
	}

	select {}
}
