// flashemu
// NOR flash emulator backed by a file.
// Cobra CLI + tcell fullscreen sector map for format progress and live view.
// One glyph per SECTOR.
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"flashemu/flash"
	"flashemu/internal/cfg"
	"flashemu/retrodfrg"
)

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
}

func human(b int64) string {
	if b >= 1024*1024 && b%(1024*1024) == 0 {
		return fmt.Sprintf("%dM", b/(1024*1024))
	}
	if b >= 1024 && b%1024 == 0 {
		return fmt.Sprintf("%dK", b/1024)
	}
	return fmt.Sprintf("%dB", b)
}

// sizeString renders n so that cfg.ParseSize reads it back unchanged.
func sizeString(n uint32) string {
	switch {
	case n >= flash.MiB && n%flash.MiB == 0:
		return fmt.Sprintf("%dm", n/flash.MiB)
	case n >= flash.KiB && n%flash.KiB == 0:
		return fmt.Sprintf("%dk", n/flash.KiB)
	default:
		return strconv.FormatUint(uint64(n), 10)
	}
}

// parseAddress accepts decimal or 0x-prefixed hex.
func parseAddress(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return uint32(v), nil
}

// parseHexBytes decodes "0f f0", "0ff0" or "0f:f0".
func parseHexBytes(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', ':', ',':
			return -1
		}
		return r
	}, s)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data %q: %w", s, err)
	}
	return b, nil
}

type app struct {
	conf cfg.Config
	geo  flash.Geometry
	log  *zap.Logger
	st   styles

	sizeStr, sectorStr, blankStr string
	inclusiveEnd                 bool
}

func (a *app) store() flash.Store {
	if a.conf.Mmap {
		return flash.NewMappedStore(a.conf.File)
	}
	return flash.NewFileStore(a.conf.File)
}

func (a *app) device(opts ...flash.Option) (*flash.Device, error) {
	base := []flash.Option{flash.WithLogger(a.log)}
	if a.inclusiveEnd {
		base = append(base, flash.WithInclusiveEnd())
	}
	return flash.New(a.store(), a.geo, append(base, opts...)...)
}

// quiet keeps info logs off the screen while tcell owns the terminal.
func (a *app) quiet() {
	a.log = a.log.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
}

func (a *app) setup(cmd *cobra.Command) error {
	size, err := cfg.ParseSize(a.sizeStr)
	if err != nil {
		return err
	}
	sector, err := cfg.ParseSize(a.sectorStr)
	if err != nil {
		return err
	}
	blank, err := cfg.ParseBlank(a.blankStr)
	if err != nil {
		return err
	}
	a.conf.TotalSize = cfg.Size(size)
	a.conf.SectorSize = cfg.Size(sector)
	a.conf.Blank = cfg.Blank(blank)
	if a.geo, err = a.conf.Geometry(); err != nil {
		return err
	}
	a.log = newLogger(cmd.ErrOrStderr(), a.conf.Debug, a.conf.LogJSON)
	return nil
}

func newRootCmd(conf cfg.Config) *cobra.Command {
	a := &app{conf: conf, st: newStyles(), log: zap.NewNop()}

	root := &cobra.Command{
		Use:               "flashemu",
		Short:             "NOR flash emulator backed by a file",
		Long:              "Erase, program and inspect an emulated NOR flash chip whose contents live in a file",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.setup(cmd) },
		PersistentPostRun: func(_ *cobra.Command, _ []string) { _ = a.log.Sync() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.conf.File, "file", conf.File, "backing file holding the flash contents")
	pf.StringVar(&a.sizeStr, "size", sizeString(uint32(conf.TotalSize)), "device size (e.g. 64k, 8m)")
	pf.StringVar(&a.sectorStr, "sector-size", sizeString(uint32(conf.SectorSize)), "erase sector size")
	pf.StringVar(&a.blankStr, "blank", fmt.Sprintf("0x%02X", byte(conf.Blank)), "value of an erased byte")
	pf.Uint32Var(&a.conf.BytesPerRow, "row", conf.BytesPerRow, "bytes per row in the pretty report")
	pf.BoolVar(&a.conf.Mmap, "mmap", conf.Mmap, "access the backing file through a memory mapping")
	pf.BoolVar(&a.inclusiveEnd, "inclusive-end", false, "accept regions ending on the last byte of the device")
	pf.BoolVarP(&a.conf.Debug, "verbose", "v", conf.Debug, "log every erase, read and write with data")
	pf.BoolVar(&a.conf.LogJSON, "log-json", conf.LogJSON, "log as JSON")

	root.AddCommand(
		a.initCmd(),
		a.formatCmd(),
		a.eraseCmd(),
		a.readCmd(),
		a.writeCmd(),
		a.prettyCmd(),
		a.infoCmd(),
		a.viewCmd(),
	)
	return root
}

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create and format the backing file if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := a.device()
			if err != nil {
				return err
			}
			if err := dev.EnsureReady(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s ready: %s, %d sectors\n",
				a.st.ok.Render("OK"), dev.Store(), human(int64(a.geo.TotalSize)), a.geo.SectorCount())
			return nil
		},
	}
}

func (a *app) formatCmd() *cobra.Command {
	var (
		progress bool
		uiEvery  uint32
	)
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Recreate the backing file and erase every sector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if progress {
				return a.formatWithUI(cmd.OutOrStdout(), uiEvery)
			}
			dev, err := a.device()
			if err != nil {
				return err
			}
			if err := dev.Format(); err != nil {
				return err
			}
			a.printFormatted(cmd.OutOrStdout(), dev)
			return nil
		},
	}
	cmd.Flags().BoolVar(&progress, "progress", false, "show a fullscreen sector map while erasing")
	cmd.Flags().Uint32Var(&uiEvery, "ui-every", 16, "redraw the sector map every N sectors")
	return cmd
}

func (a *app) printFormatted(w io.Writer, dev *flash.Device) {
	fmt.Fprintf(w, "%s %s formatted: %s, %d sectors of %s, blank=%02X\n",
		a.st.ok.Render("OK"), dev.Store(), human(int64(a.geo.TotalSize)),
		a.geo.SectorCount(), human(int64(a.geo.SectorSize)), a.geo.Blank)
}

// stopOnSignal turns Ctrl+C into a UI stop request. The returned func
// releases the signal handler.
func stopOnSignal(ui *retrodfrg.UI) func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})
	go func() {
		select {
		case <-sigChan:
			ui.RequestStop()
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// formatProgress redraws the sector map while Format runs and aborts the
// format between sectors once the user asks to stop.
func formatProgress(ui *retrodfrg.UI, pt *progressTracker, every uint32) func(sector, count uint32) error {
	return func(sector, count uint32) error {
		if sector == 0 {
			ui.SetPhaseDone("create")
		}
		pt.mark(sector)
		if retrodfrg.Redraw(sector, count, every) {
			updateFormatStatus(ui, pt, "Erase sectors")
			ui.LayoutAndDraw()
		}
		if ui.IsStopped() {
			return retrodfrg.ErrInterrupted
		}
		return nil
	}
}

func (a *app) formatWithUI(out io.Writer, every uint32) error {
	ui, err := retrodfrg.NewUI()
	if err != nil {
		return fmt.Errorf("ui init: %w", err)
	}
	defer ui.Close()
	defer stopOnSignal(ui)()
	a.quiet()

	pt := newProgressTracker(a.geo.SectorCount())
	dev, err := a.device(flash.WithFormatProgress(formatProgress(ui, pt, every)))
	if err != nil {
		return err
	}

	ui.SetTitle(fmt.Sprintf(" FORMAT – %s  %s ", a.conf.File, human(int64(a.geo.TotalSize))))
	ui.SetPhases([]string{"Create", "Erase", "Verify"})
	ui.SetSummaryLines(summaryLines(dev))
	ui.SetLegend([]string{"Legend:  ░ erased   ■ pending | Q to quit"})
	ui.SetGlyphStyles(glyphStyles)
	updateFormatStatus(ui, pt, "Create medium")
	ui.LayoutAndDraw()

	if err := dev.Format(); err != nil {
		return err
	}
	ui.SetPhaseDone("erase")
	updateFormatStatus(ui, pt, "Verify")
	ui.LayoutAndDraw()

	sm, err := dev.Scan()
	if err != nil {
		return err
	}
	if sm.BlankSectors() != sm.SectorCount() {
		return fmt.Errorf("%w: verify found %d of %d sectors blank", flash.ErrMediumCorrupt, sm.BlankSectors(), sm.SectorCount())
	}
	ui.SetPhaseDone("verify")
	updateFormatStatus(ui, pt, "Format complete")
	ui.LayoutAndDraw()

	if err := retrodfrg.WaitWithStop(ui, 2*time.Second); err != nil && !errors.Is(err, retrodfrg.ErrInterrupted) {
		return err
	}
	ui.Close()

	a.printFormatted(out, dev)
	return nil
}

func (a *app) eraseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "erase ADDR",
		Short: "Erase the sector containing ADDR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			dev, err := a.device()
			if err != nil {
				return err
			}
			if err := dev.EraseSector(addr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s erased sector %d at %08X\n",
				a.st.ok.Render("OK"), a.geo.SectorIndex(addr), a.geo.SectorBase(addr))
			return nil
		},
	}
}

func (a *app) readCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "read ADDR LEN",
		Short: "Read LEN bytes starting at ADDR",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			length, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			dev, err := a.device()
			if err != nil {
				return err
			}
			data, err := dev.Read(addr, length)
			if err != nil {
				return err
			}
			if out != "" {
				return os.WriteFile(out, data, 0o644)
			}
			a.hexDump(cmd.OutOrStdout(), addr, data)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write the raw bytes to this file instead of dumping them")
	return cmd
}

func (a *app) writeCmd() *cobra.Command {
	var hexData, in string
	cmd := &cobra.Command{
		Use:   "write ADDR (--hex DATA | --in FILE)",
		Short: "Program bytes at ADDR; bits can only be cleared",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (hexData == "") == (in == "") {
				return fmt.Errorf("choose exactly one of --hex or --in")
			}
			addr, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			var data []byte
			if in != "" {
				data, err = os.ReadFile(in)
			} else {
				data, err = parseHexBytes(hexData)
			}
			if err != nil {
				return err
			}
			if len(data) == 0 {
				return fmt.Errorf("no data to write")
			}

			var anomalies []flash.Anomaly
			dev, err := a.device(flash.WithAnomalyHandler(func(an flash.Anomaly) {
				anomalies = append(anomalies, an)
			}))
			if err != nil {
				return err
			}
			n, err := dev.Write(addr, data)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s wrote %d bytes at %08X\n", a.st.ok.Render("OK"), n, addr)
			for _, an := range anomalies {
				fmt.Fprintf(w, "%s %s\n", a.st.warn.Render("WARN"), an)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&hexData, "hex", "", `bytes to write as hex, e.g. "0f f0"`)
	cmd.Flags().StringVar(&in, "in", "", "file whose contents are written")
	return cmd
}

func (a *app) prettyCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "pretty",
		Short: "Write a sector-by-row hex report of the whole device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := a.device()
			if err != nil {
				return err
			}
			if out == "" {
				out = a.conf.Report
			}
			if out == "-" {
				return dev.Export(cmd.OutOrStdout())
			}
			if err := dev.ExportFile(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s report written to %s\n", a.st.ok.Render("OK"), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", `report path, "-" for stdout (default from FLASHEMU_REPORT)`)
	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show geometry and per-sector usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dev, err := a.device()
			if err != nil {
				return err
			}
			sm, err := dev.Scan()
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			a.printInfo(cmd.OutOrStdout(), dev, sm)
			return nil
		},
	}
}

func (a *app) viewCmd() *cobra.Command {
	var refresh time.Duration
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show a live sector map of the device",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if refresh <= 0 {
				return fmt.Errorf("--refresh must be positive")
			}
			dev, err := a.device()
			if err != nil {
				return err
			}
			if _, err := dev.Scan(); err != nil {
				return err
			}

			ui, err := retrodfrg.NewUI()
			if err != nil {
				return fmt.Errorf("ui init: %w", err)
			}
			defer ui.Close()
			defer stopOnSignal(ui)()
			a.quiet()

			ui.SetTitle(fmt.Sprintf(" FLASH – %s ", a.conf.File))
			ui.SetSummaryLines(summaryLines(dev))
			ui.SetLegend([]string{"Legend:  ░ blank   ▒ partial   █ full | Q to quit"})
			ui.SetGlyphStyles(glyphStyles)
			return retrodfrg.Watch(ui, refresh, func() error {
				sm, err := dev.Scan()
				if err != nil {
					return err
				}
				updateViewStatus(ui, sm, lastProgrammed(sm))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&refresh, "refresh", 500*time.Millisecond, "rescan interval")
	return cmd
}

func main() {
	conf, err := cfg.Parse()
	must(err)
	must(newRootCmd(conf).Execute())
}
