package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"

	noncegen "github.com/burstcoin-oss/noncegen2"
	"github.com/burstcoin-oss/noncegen2/plotfile"
)

func main() {
	app := &cli.App{
		Name:  "plotgen",
		Usage: "generate Burst/Signum PoC2 plot files",
		Flags: []cli.Flag{
			&cli.Uint64Flag{Name: "account-id", Required: true, Usage: "numeric account id"},
			&cli.Uint64Flag{Name: "start-nonce", Usage: "first nonce to generate"},
			&cli.Uint64Flag{Name: "count", Required: true, Usage: "total number of nonces to generate"},
			&cli.Uint64Flag{Name: "stagger-size", Value: 8000, Usage: "nonces per plot file"},
			&cli.IntFlag{Name: "workers", Value: 0, Usage: "goroutines per plot file (0 = runtime.NumCPU())"},
			&cli.StringFlag{Name: "output-dir", Value: ".", Usage: "directory to write plot files and manifests into"},
			&cli.StringFlag{Name: "max-width", Value: "auto", Usage: "cap the SIMD width: auto, scalar, mw2, mw4, mw8, mw16"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	width, err := parseWidth(c.String("max-width"))
	if err != nil {
		return err
	}

	var opts []noncegen.Option
	if width != nil {
		opts = append(opts, noncegen.WithMaxWidth(*width))
	}
	gen := noncegen.NewGenerator(opts...)
	log.Printf("dispatching to width %s", gen.Width())

	accountID := c.Uint64("account-id")
	startNonce := c.Uint64("start-nonce")
	count := c.Uint64("count")
	stagger := c.Uint64("stagger-size")
	workers := c.Int("workers")
	outDir := c.String("output-dir")

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return xerrors.Errorf("creating output directory: %w", err)
	}

	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	for done := uint64(0); done < count; {
		n := stagger
		if remaining := count - done; remaining < n {
			n = remaining
		}

		path, err := plotfile.WriteRange(ctx, gen, outDir, accountID, startNonce+done, n, workers)
		if err != nil {
			return xerrors.Errorf("writing nonces [%d, %d): %w", startNonce+done, startNonce+done+n, err)
		}
		log.Printf("wrote %s (%d nonces)", path, n)
		done += n
	}

	return nil
}

func parseWidth(s string) (*noncegen.Width, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return nil, nil
	case "scalar":
		w := noncegen.Scalar
		return &w, nil
	case "mw2":
		w := noncegen.MW2
		return &w, nil
	case "mw4":
		w := noncegen.MW4
		return &w, nil
	case "mw8":
		w := noncegen.MW8
		return &w, nil
	case "mw16":
		w := noncegen.MW16
		return &w, nil
	default:
		return nil, fmt.Errorf("plotgen: unrecognized max-width %q", s)
	}
}
