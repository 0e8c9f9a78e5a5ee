package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"golang.org/x/term"

	"github.com/wippyai/wavedash"
	"github.com/wippyai/wavedash/config"
	"github.com/wippyai/wavedash/internal/wasmbin"
	"github.com/wippyai/wavedash/protocol"
	"github.com/wippyai/wavedash/runtime"
	"github.com/wippyai/wavedash/world"
)

var (
	cmdRun = cli.Command{
		Name:  "run",
		Usage: "load the configured modules and tick them",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:   "config, c",
				Usage:  "Load configuration from `FILE`",
				EnvVar: "WAVEDASH_CONFIG",
				Value:  "wavedash.yaml",
			},
			cli.StringFlag{
				Name:  "log-level, l",
				Usage: "override the configured log level, debug|info|warn|error",
			},
			cli.Uint64Flag{
				Name:  "ticks, n",
				Usage: "override max_ticks; 0 keeps the configured value",
			},
			cli.BoolFlag{
				Name:  "interactive, i",
				Usage: "step through ticks in a terminal inspector",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if lvl := c.String("log-level"); lvl != "" {
				cfg.Log.Level = lvl
			}
			if n := c.Uint64("ticks"); n > 0 {
				cfg.MaxTicks = n
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if c.Bool("interactive") {
				if !term.IsTerminal(int(os.Stdout.Fd())) {
					return fmt.Errorf("--interactive needs a terminal")
				}
				return runInteractive(cfg)
			}
			return runHeadless(cfg)
		},
	}

	cmdInspect = cli.Command{
		Name:      "inspect",
		Usage:     "check a guest module against the host contract",
		ArgsUsage: "<module.wasm>",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "entry, e",
				Usage: "entry point export name",
				Value: wavedash.ExportMain,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.NewExitError("inspect takes exactly one module path", 2)
			}
			wasm, err := os.ReadFile(c.Args().First())
			if err != nil {
				return err
			}
			return inspect(context.Background(), os.Stdout, wasm, c.String("entry"))
		},
	}

	cmdDemo = cli.Command{
		Name:  "demo",
		Usage: "run a built-in counter guest against Counter=42",
		Flags: []cli.Flag{
			cli.IntFlag{
				Name:  "ticks, n",
				Usage: "number of ticks",
				Value: 3,
			},
		},
		Action: func(c *cli.Context) error {
			return demo(context.Background(), os.Stdout, c.Int("ticks"))
		},
	}

	cmdSchema = cli.Command{
		Name:  "schema",
		Usage: "print the JSON schema of the config file",
		Action: func(c *cli.Context) error {
			data, err := config.Schema()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, string(data))
			return err
		},
	}
)

func runHeadless(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := newHost(ctx, cfg, hostOptions{})
	if err != nil {
		return err
	}
	defer h.Close(context.Background())

	return h.run(ctx)
}

func inspect(ctx context.Context, w io.Writer, wasm []byte, entry string) error {
	rt, err := runtime.New(ctx, runtime.WithEntryPoint(entry))
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	contract, err := rt.Inspect(ctx, wasm)
	if err != nil {
		return err
	}

	check := func(ok bool) string {
		if ok {
			return "yes"
		}
		return "no"
	}
	fmt.Fprintf(w, "memory export:    %s\n", check(contract.HasMemory))
	fmt.Fprintf(w, "allocator export: %s\n", check(contract.HasAlloc))
	fmt.Fprintf(w, "entry %-11s %s\n", contract.Entry+":", check(contract.HasEntry))
	fmt.Fprintf(w, "init export:      %s\n", check(contract.HasInit))
	fmt.Fprintf(w, "system exports:   %s\n", check(contract.HasSystems))

	fmt.Fprintf(w, "\nexports: %s\n", strings.Join(contract.Exports, ", "))
	fmt.Fprintf(w, "imports: %s\n", strings.Join(contract.Imports, ", "))

	if err := contract.Check("inspected"); err != nil {
		fmt.Fprintf(w, "\n%v\n", err)
		return cli.NewExitError("module does not satisfy the host contract", 1)
	}
	fmt.Fprintln(w, "\nok")
	return nil
}

func demo(ctx context.Context, w io.Writer, ticks int) error {
	cfg := config.Default()
	cfg.Codec = protocol.CodecBorsh
	cfg.Log.Level = "warn"
	cfg.Resources = []config.Resource{{Key: "Counter", Type: config.TypeInt, Value: 42}}

	codec := protocol.Borsh()
	descs, err := cfg.Descriptors(codec)
	if err != nil {
		return err
	}

	var lines []string
	rt, err := runtime.New(ctx,
		runtime.WithCodec(codec),
		runtime.WithResource(descs...),
		runtime.WithLogHook(func(module, text string) {
			lines = append(lines, module+": "+text)
		}),
	)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	m, err := rt.Load(ctx, "counter", wasmbin.CounterGuest().MustBuild())
	if err != nil {
		return err
	}

	st := world.New()
	if err := cfg.Seed(st); err != nil {
		return err
	}

	for i := 1; i <= ticks; i++ {
		start := time.Now()
		if err := m.Tick(ctx, st); err != nil {
			return err
		}
		v, _ := st.Get("Counter")
		fmt.Fprintf(w, "tick %d: Counter=%v (%s)\n", i, v, time.Since(start).Round(time.Microsecond))
	}
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}
