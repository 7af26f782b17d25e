package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/urfave/cli/v2"

	"github.com/rcarmo/go-tga/internal/batch"
	"github.com/rcarmo/go-tga/internal/codec"
	"github.com/rcarmo/go-tga/internal/config"
	"github.com/rcarmo/go-tga/internal/logging"
)

const (
	formatPNG = "png"
	formatRaw = "raw"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logging.Error("%v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()

	app.Name = "tgaconv"
	app.Usage = "Inspect and convert Truevision TGA images"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			EnvVars: []string{"CONFIG_FILE"},
			Usage:   "YAML file with decoder limits",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Before = func(c *cli.Context) error {
		level := "warn"
		if c.Bool("verbose") {
			level = "debug"
		}
		logging.SetLevelFromString(level)
		return nil
	}

	app.Commands = []*cli.Command{
		{
			Name:      "info",
			Usage:     "Print the header of each file",
			ArgsUsage: "FILE...",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				for _, file := range c.Args().Slice() {
					if err := printInfo(c.App.Writer, file); err != nil {
						return cli.Exit(fmt.Sprintf("%s: %v", file, err), 1)
					}
				}

				return nil
			},
		},
		{
			Name:      "convert",
			Usage:     "Decode each file and write it next to the input",
			ArgsUsage: "FILE...",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "format",
					Value: formatPNG,
					Usage: "output format: png, or raw for the packed pixel buffer",
				},
				&cli.IntFlag{
					Name:  "colors",
					Usage: "reduce PNG output to a palette of at most N colors (2-256)",
				},
				&cli.BoolFlag{
					Name:  "top-down",
					Usage: "store raw output with the top row first",
				},
				&cli.StringFlag{
					Name:  "output-dir",
					Usage: "write outputs here instead of beside the inputs",
				},
				&cli.IntFlag{
					Name:  "jobs",
					Value: 4,
					Usage: "number of files converted in parallel",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				conv, err := newConverter(c)
				if err != nil {
					return cli.Exit(err, 1)
				}

				if err := batch.Run(c.Context, c.Args().Slice(), c.Int("jobs"), conv.convert); err != nil {
					return cli.Exit(err, 1)
				}

				conv.report(c.App.Writer)

				return nil
			},
		},
	}

	return app
}

func printInfo(w io.Writer, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := codec.DecodeConfig(f)
	if err != nil {
		return err
	}
	h := info.Header

	orientation := "bottom-up"
	if h.TopToBottom() {
		orientation = "top-down"
	}

	fmt.Fprintf(w, "%s\n", file)
	fmt.Fprintf(w, "  type:        %d (%s)\n", h.ImageType, codec.ImageTypeName(h.ImageType))
	fmt.Fprintf(w, "  size:        %dx%d\n", info.Width, info.Height)
	fmt.Fprintf(w, "  depth:       %d bits, %d alpha\n", h.PixelDepth, h.AlphaBits())
	fmt.Fprintf(w, "  layout:      %s (%s)\n", info.Format.Layout, info.Format.Compression)
	fmt.Fprintf(w, "  orientation: %s\n", orientation)
	if h.HasColormap() {
		fmt.Fprintf(w, "  colormap:    %d entries of %d bits from %d\n", h.ColormapLength, h.ColormapEntrySize, h.ColormapOrigin)
	}
	if h.IDLength > 0 {
		fmt.Fprintf(w, "  image id:    %d bytes\n", h.IDLength)
	}

	return nil
}

type converter struct {
	opts      codec.Options
	format    string
	colors    int
	outputDir string

	mu      sync.Mutex
	written []string
}

func newConverter(c *cli.Context) (*converter, error) {
	cfg, err := config.LoadWithOverrides(config.LoadOptions{ConfigFile: c.String("config")})
	if err != nil {
		return nil, err
	}

	conv := &converter{
		opts:      cfg.DecoderOptions(),
		format:    strings.ToLower(c.String("format")),
		colors:    c.Int("colors"),
		outputDir: c.String("output-dir"),
	}
	conv.opts.TopDown = conv.opts.TopDown || c.Bool("top-down")

	if conv.format != formatPNG && conv.format != formatRaw {
		return nil, fmt.Errorf("unknown format %q", conv.format)
	}
	if conv.colors != 0 && (conv.colors < 2 || conv.colors > 256) {
		return nil, fmt.Errorf("colors must be between 2 and 256, got %d", conv.colors)
	}
	if conv.colors != 0 && conv.format != formatPNG {
		return nil, fmt.Errorf("--colors only applies to png output")
	}

	return conv, nil
}

func (conv *converter) outputPath(file string) string {
	out := strings.TrimSuffix(file, filepath.Ext(file)) + "." + conv.format
	if conv.outputDir != "" {
		out = filepath.Join(conv.outputDir, filepath.Base(out))
	}
	return out
}

func (conv *converter) convert(ctx context.Context, file string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m, err := codec.DecodeFile(file, conv.opts)
	if err != nil {
		return err
	}
	logging.Debug("decoded %s: %dx%d %s", file, m.Width, m.Height, m.Layout)

	out := conv.outputPath(file)
	f, err := os.Create(out)
	if err != nil {
		return err
	}

	if conv.format == formatRaw {
		_, err = f.Write(m.Pix)
	} else {
		err = png.Encode(f, conv.image(m))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(out)
		return err
	}

	conv.mu.Lock()
	conv.written = append(conv.written, out)
	conv.mu.Unlock()

	return nil
}

func (conv *converter) image(m *codec.Image) image.Image {
	img := m.Image()
	if conv.colors == 0 {
		return img
	}

	b := img.Bounds()
	q := quantize.MedianCutQuantizer{}
	pm := image.NewPaletted(b, q.Quantize(make(color.Palette, 0, conv.colors), img))
	draw.Draw(pm, b, img, b.Min, draw.Src)

	return pm
}

func (conv *converter) report(w io.Writer) {
	conv.mu.Lock()
	defer conv.mu.Unlock()
	for _, out := range conv.written {
		fmt.Fprintf(w, "wrote %s\n", out)
	}
}
