//go:build !tinygo

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"adbridge/adb"
	"adbridge/app"
	"adbridge/blehid"
	"adbridge/blehid/radio"
	"adbridge/bridge"
	"adbridge/hal"
)

// hostConfig is the desktop simulator configuration. Flags override
// the TOML file.
type hostConfig struct {
	Headless     bool   `toml:"headless"`
	Hz           int    `toml:"hz"`
	Ticks        uint64 `toml:"ticks"`
	Monitor      bool   `toml:"monitor"`
	SelfTest     bool   `toml:"self_test"`
	Script       string `toml:"script"`
	BootKeyboard bool   `toml:"boot_keyboard"`
	Radio        bool   `toml:"radio"`
}

func main() {
	var (
		configPath = flag.String("config", "", "TOML config file")
		headless   = flag.Bool("headless", false, "run without a window")
		hz         = flag.Int("hz", 60, "headless tick rate")
		ticks      = flag.Uint64("ticks", 0, "headless tick budget, 0 = forever")
		monitor    = flag.Bool("monitor", false, "passive bus monitor mode")
		selfTest   = flag.Bool("selftest", false, "run the timing self-test at boot")
		script     = flag.String("script", "", "synthetic input: typing or mouse")
		bootKbd    = flag.Bool("boot-kbd", false, "force boot protocol for keyboards")
		useRadio   = flag.Bool("radio", false, "use the real BLE adapter")
	)
	flag.Parse()

	cfg := hostConfig{Hz: 60}
	if *configPath != "" {
		if _, err := toml.DecodeFile(*configPath, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, "config:", err)
			os.Exit(1)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "headless":
			cfg.Headless = *headless
		case "hz":
			cfg.Hz = *hz
		case "ticks":
			cfg.Ticks = *ticks
		case "monitor":
			cfg.Monitor = *monitor
		case "selftest":
			cfg.SelfTest = *selfTest
		case "script":
			cfg.Script = *script
		case "boot-kbd":
			cfg.BootKeyboard = *bootKbd
		case "radio":
			cfg.Radio = *useRadio
		}
	})

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg hostConfig) error {
	pin := hal.NewSimBusPin()
	logger := hal.NewHostLogger()
	clock := hal.NewHostClock()
	fb := hal.NewHostFramebuffer(128, 64)

	var r blehid.Radio = &nullRadio{}
	if cfg.Radio {
		r = radio.New()
	}

	sys := app.System{
		Pin:        pin,
		Logger:     logger,
		Clock:      clock,
		Display:    hal.NewHostDisplay(fb),
		BondButton: &hal.SimButton{},
		Radio:      r,
	}
	a := app.New(sys, app.Config{
		SelfTest:    cfg.SelfTest,
		MonitorOnly: cfg.Monitor,
		BLE:         blehid.Config{ForceBootKeyboard: cfg.BootKeyboard},
	})

	stop := make(chan struct{})
	defer close(stop)
	if err := a.Start(stop); err != nil {
		return err
	}

	go virtualMac(pin, stop)
	switch cfg.Script {
	case "typing":
		go scriptTyping(a.Keys, stop)
	case "mouse":
		go scriptMouse(a.Ptr, stop)
	}

	if cfg.Headless {
		return hal.RunHeadless(context.Background(), nil, hal.HeadlessConfig{
			Hz:    cfg.Hz,
			Ticks: cfg.Ticks,
		})
	}
	return hal.RunWindow(fb, nil)
}

// virtualMac plays the computer's role on the simulated line: it
// polls the keyboard and the mouse in alternation, like a quiet host
// that has already moved its devices nowhere.
func virtualMac(pin *hal.SimBusPin, stop <-chan struct{}) {
	cmds := []adb.Command{
		{Addr: adb.DefaultKeyboardAddress, Op: adb.OpTalk, Reg: 0},
		{Addr: adb.DefaultMouseAddress, Op: adb.OpTalk, Reg: 0},
	}
	i := 0
	for {
		select {
		case <-stop:
			return
		default:
		}
		var edges []hal.SimEdge
		edges, _ = adb.AppendCommand(edges, pin.Now()+500, cmds[i%len(cmds)])
		pin.Script(edges)
		i++
		time.Sleep(2 * time.Millisecond)
	}
}

// scriptTyping feeds a canned key sequence, as if a paired keyboard
// were sending reports.
func scriptTyping(q *bridge.KeyQueue, stop <-chan struct{}) {
	// "hello" on the HID keyboard page.
	seq := []uint8{0x0B, 0x08, 0x0F, 0x0F, 0x12}
	i := 0
	t := time.NewTicker(300 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			u := seq[i%len(seq)]
			q.TryPush(bridge.KeyEvent{Usage: u})
			q.TryPush(bridge.KeyEvent{Usage: u, Release: true})
			i++
		}
	}
}

// scriptMouse feeds a slow circular drag.
func scriptMouse(q *bridge.PointerQueue, stop <-chan struct{}) {
	deltas := [][2]int16{{3, 0}, {2, 2}, {0, 3}, {-2, 2}, {-3, 0}, {-2, -2}, {0, -3}, {2, -2}}
	i := 0
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			d := deltas[i%len(deltas)]
			q.TryPush(bridge.PointerEvent{DX: d[0], DY: d[1]})
			i++
		}
	}
}

// nullRadio stands in when no BLE adapter should be touched. Scans
// park until stopped and never sight anything.
type nullRadio struct {
	mu   sync.Mutex
	scan chan struct{}
}

func (r *nullRadio) Enable() error { return nil }

func (r *nullRadio) Scan(cb func(blehid.Advertisement)) error {
	r.mu.Lock()
	ch := make(chan struct{})
	r.scan = ch
	r.mu.Unlock()
	<-ch
	return nil
}

func (r *nullRadio) StopScan() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scan != nil {
		close(r.scan)
		r.scan = nil
	}
	return nil
}

func (r *nullRadio) Connect(addr string) (blehid.Client, error) {
	return nil, fmt.Errorf("no radio")
}

func (r *nullRadio) WipeBonds() error { return nil }
