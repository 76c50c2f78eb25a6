// Command riscvemu boots and runs a RISC-V machine from a
// configuration file. Flag parsing, logging setup, and the
// signal-driven graceful-shutdown sequence are grounded on the
// teacher's main.go.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rvemu/core/internal/config"
	"github.com/rvemu/core/internal/console"
	"github.com/rvemu/core/internal/logger"
	"github.com/rvemu/core/internal/machine"
	"github.com/rvemu/core/internal/uart"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "riscvemu.cfg", "Machine description file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optConsole := getopt.StringLong("console", 'm', "", "Monitor console listen address, e.g. :4040")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("cannot create log file", "path", *optLogFile, "error", err)
			os.Exit(1)
		}
	}
	log := slog.New(logger.New(file, slog.LevelInfo, false))
	slog.SetDefault(log)

	log.Info("riscvemu started")

	if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
		log.Error("configuration file not found", "path", *optConfig)
		os.Exit(1)
	}

	desc, err := config.Load(*optConfig)
	if err != nil {
		log.Error("failed to parse configuration", "error", err)
		os.Exit(1)
	}

	m, err := machine.New(machine.Config{
		RAMBase:  desc.RAMBase,
		RAMSize:  desc.RAMSize,
		NumHarts: desc.NumHarts,
		EntryPC:  desc.EntryPC,
		TLBSize:  64,
	})
	if err != nil {
		log.Error("failed to build machine", "error", err)
		os.Exit(1)
	}

	if err := attachDevices(m, desc); err != nil {
		log.Error("failed to attach devices", "error", err)
		os.Exit(1)
	}

	if desc.BootPath != "" {
		image, err := os.ReadFile(desc.BootPath)
		if err != nil {
			log.Error("failed to read boot image", "path", desc.BootPath, "error", err)
			os.Exit(1)
		}
		if err := m.RAM.LoadImage(desc.RAMBase, image); err != nil {
			log.Error("failed to load boot image", "error", err)
			os.Exit(1)
		}
	}

	var mon *console.Server
	if *optConsole != "" {
		mon, err = console.Start(*optConsole, m)
		if err != nil {
			log.Error("failed to start monitor console", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	log.Info("machine running", "harts", desc.NumHarts, "ram_base", desc.RAMBase, "ram_size", desc.RAMSize)
	runErr := m.Run(ctx)

	log.Info("shutting down machine")
	m.Shutdown()
	if mon != nil {
		mon.Stop()
	}
	if runErr != nil && ctx.Err() == nil {
		log.Error("machine run error", "error", runErr)
		os.Exit(1)
	}
	log.Info("riscvemu stopped")
}

// attachDevices registers each "uart" device line from the configuration
// into the machine's MMIO table. "clint" lines are skipped, since
// machine.New already attaches the CLINT at its fixed base; other
// device names are logged and ignored.
func attachDevices(m *machine.Machine, desc config.Machine) error {
	for _, d := range desc.Devices {
		switch d.Name {
		case "clint":
			// already attached by machine.New
			continue
		case "uart":
			dev := uart.New(os.Stdout)
			if _, err := m.MMIO.Add(d.Base, d.Base+dev.Length(), "uart", dev, nil); err != nil {
				return err
			}
		default:
			slog.Warn("ignoring unknown device", "name", d.Name, "base", d.Base)
		}
	}
	return nil
}
