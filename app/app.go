// Package app wires the subsystems together and supervises their
// tasks.
package app

import (
	"time"

	"adbridge/adb"
	"adbridge/blehid"
	"adbridge/bridge"
	"adbridge/diag"
	"adbridge/hal"
	"adbridge/internal/buildinfo"
	"adbridge/keymap"
	"adbridge/status"
)

// bondHoldMillis is how long the button must be held at boot to wipe
// pairing keys.
const bondHoldMillis = 3000

// System is the hardware the app runs on. Display and BondButton may
// be nil.
type System struct {
	Pin        hal.BusPin
	Logger     hal.Logger
	Clock      hal.Clock
	Display    hal.Display
	BondButton hal.Button
	Radio      blehid.Radio
}

// Config selects optional behavior.
type Config struct {
	// SelfTest runs the line and timing check before joining the bus.
	SelfTest bool
	// MonitorOnly decodes bus traffic passively instead of emulating
	// devices. No radio is started.
	MonitorOnly bool
	BLE         blehid.Config
}

// App owns every subsystem. Fields are exported for the entrypoints
// and the desktop simulator.
type App struct {
	sys System
	cfg Config

	Keys *bridge.KeyQueue
	Ptr  *bridge.PointerQueue

	Keyboard *adb.Keyboard
	Mouse    *adb.Mouse
	Engine   *adb.Engine
	Monitor  *adb.Monitor
	Host     *blehid.Host

	Collector *diag.Collector
	Panel     *status.Panel
}

// New builds the subsystem graph: queues first, then the bus engine,
// then the radio host, then the collector and the status panel that
// read them.
func New(sys System, cfg Config) *App {
	a := &App{
		sys:  sys,
		cfg:  cfg,
		Keys: &bridge.KeyQueue{},
		Ptr:  &bridge.PointerQueue{},
	}

	a.Keyboard = adb.NewKeyboard()
	a.Mouse = adb.NewMouse()
	a.Engine = adb.NewEngine(sys.Pin, sys.Logger)
	a.Engine.Attach(a.Keyboard)
	a.Engine.Attach(a.Mouse)
	a.Monitor = adb.NewMonitor(sys.Pin, sys.Logger)

	if !cfg.MonitorOnly {
		a.Host = blehid.New(sys.Radio, sys.Clock, sys.Logger, a.Keys, a.Ptr, cfg.BLE)
	}

	a.Collector = &diag.Collector{
		Engine:   a.Engine,
		Keyboard: a.Keyboard,
		Mouse:    a.Mouse,
		Host:     a.Host,
		Keys:     a.Keys,
		Ptr:      a.Ptr,
		Clock:    sys.Clock,
	}
	if sys.Display != nil {
		a.Panel = status.NewPanel(sys.Display.Framebuffer(), a.Collector)
	}
	return a
}

// Start brings the system up and spawns the tasks. It returns once
// everything is running; stop tears the tasks down.
func (a *App) Start(stop <-chan struct{}) error {
	log := a.sys.Logger
	log.WriteLineString("[INIT] adbridge " + buildinfo.Short())

	if a.Panel != nil {
		a.Panel.ShowBoot(buildinfo.Short())
	}

	if a.cfg.MonitorOnly {
		log.WriteLineString("[INIT] passive monitor mode")
		go a.Monitor.Run(stop)
		go a.Collector.Run(stop, log)
		return nil
	}

	if a.cfg.SelfTest {
		if err := adb.SelfTest(a.sys.Pin, log); err != nil {
			return err
		}
	}

	if err := a.Host.Init(); err != nil {
		return err
	}

	a.bondClearGesture()

	// The bus loop gets its own goroutine and, on hardware, its own
	// core. Everything else shares the remaining one.
	go a.Engine.Run(stop)
	go a.pump(stop)
	go a.bleTask(stop)
	go a.Collector.Run(stop, log)
	if a.Panel != nil {
		go a.Panel.Run(stop)
	}

	log.WriteLineString("[INIT] tasks running")
	return nil
}

// bondClearGesture wipes pairing keys when the button is held through
// boot, with a countdown on the panel.
func (a *App) bondClearGesture() {
	btn := a.sys.BondButton
	if btn == nil || !btn.Pressed() {
		return
	}
	log := a.sys.Logger
	log.WriteLineString("[INIT] bond-clear hold detected")

	start := a.sys.Clock.Millis()
	for btn.Pressed() {
		held := a.sys.Clock.Millis() - start
		if held >= bondHoldMillis {
			err := a.Host.WipeBonds()
			if err != nil {
				log.WriteLineString("[BLE] bond wipe: " + err.Error())
			} else {
				log.WriteLineString("[BLE] bonds cleared")
			}
			if a.Panel != nil {
				a.Panel.ShowBondsCleared(err == nil)
			}
			for btn.Pressed() {
				time.Sleep(50 * time.Millisecond)
			}
			return
		}
		if a.Panel != nil {
			left := int((bondHoldMillis - held + 999) / 1000)
			a.Panel.ShowBondCountdown(left)
		}
		time.Sleep(50 * time.Millisecond)
	}
	log.WriteLineString("[INIT] bond-clear aborted")
}

// pump drains the bridge queues into the bus register files. It is
// the single producer for both devices.
func (a *App) pump(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		moved := false
		if ev, ok := a.Keys.TryPop(); ok {
			moved = true
			if wire := keymap.ToWire(ev.Usage); wire != keymap.Unmapped {
				a.Keyboard.Enqueue(wire, ev.Release)
			}
		}
		if ev, ok := a.Ptr.TryPop(); ok {
			moved = true
			a.Mouse.AddMovement(int32(ev.DX), int32(ev.DY))
			a.Mouse.SetButton(ev.Buttons&0x01 != 0)
		}
		if !moved {
			time.Sleep(time.Millisecond)
		}
	}
}

// bleTask drives the radio host timers.
func (a *App) bleTask(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		a.Host.Tick()
		time.Sleep(100 * time.Millisecond)
	}
}
