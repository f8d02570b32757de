package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"remphot/internal/logger"
	"remphot/pkg/catalog"
	"remphot/pkg/config"
	"remphot/pkg/edits"
	"remphot/pkg/findres"
	"remphot/pkg/locate"
	"remphot/pkg/overlay"
	"remphot/pkg/photerr"
)

func runBlind(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("blind", flag.ContinueOnError)
	out := fs.String("o", "", "result file (default <image>.findres.xml)")
	par := fs.String("searchpar", "", "SEARCHPAR document overriding the configured search parameters")
	brightest := fs.Int("n", 0, "keep only the n brightest objects")
	force := fs.Bool("force", false, "overwrite an existing result file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: remfind blind [flags] <image.fits>")
	}
	p, err := searchParams(cfg, *par)
	if err != nil {
		return err
	}
	if *brightest > 0 {
		p.BrightestOnly = *brightest
	}

	img, err := loadImage(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer img.Close()

	loc, err := locate.NewLocator(img, p)
	if err != nil {
		return err
	}
	defer loc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rs, metrics, err := loc.Find(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Threshold %.1f  cutoff %.1f  candidates %d  accepted %d\n",
		metrics.Threshold, metrics.Cutoff, metrics.Candidates, metrics.Accepted)
	printResults(rs)
	return rs.Save(outputPath(*out, fs.Arg(0), ".findres.xml"), *force)
}

func runFind(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	out := fs.String("o", "", "result file (default <image>.findres.xml)")
	objloc := fs.String("objloc", "", "also write predicted positions to this Objloc document")
	par := fs.String("searchpar", "", "SEARCHPAR document overriding the configured search parameters")
	record := fs.Bool("record", false, "record the observation and its results in the catalog history")
	force := fs.Bool("force", false, "overwrite existing output files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: remfind find [flags] <image.fits> <object>")
	}
	p, err := searchParams(cfg, *par)
	if err != nil {
		return err
	}

	img, err := loadImage(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer img.Close()

	cat, err := catalog.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	epoch := img.ObsDate()
	objects, err := cat.ObjectsInVicinity(ctx, fs.Arg(1), &epoch)
	if err != nil {
		return err
	}
	target := objects[0]

	var obsind uint
	if *record {
		obsind, err = cat.RecordObservation(ctx, catalog.Observation{
			ObsDate:  img.ObsDate(),
			Vicinity: target.Vicinity,
			Filter:   findres.FilterText(img.Filter()),
			ExpTime:  img.ExpTime,
		})
		if err != nil {
			return err
		}
	}

	located, err := locate.LocateCatalog(ctx, img, objects, p)
	if errors.Is(err, photerr.ErrTargetMiss) && *record {
		nf := catalog.NotFound{
			ObsInd:    obsind,
			ObjName:   target.Name,
			Reason:    err.Error(),
			ExpTime:   img.ExpTime,
			ApSize:    target.ApSize,
			SearchRad: p.MaxShift,
		}
		if rerr := cat.RecordNotFound(ctx, nf); rerr != nil {
			logger.L.Warn("could not record miss", zap.Error(rerr))
		}
	}
	if err != nil {
		return err
	}

	fmt.Printf("Target %s shifted by (%d, %d)\n", target.Label(), located.ColShift, located.RowShift)
	for _, name := range located.Missed {
		fmt.Printf("  not found: %s\n", name)
	}
	printResults(located.Results)

	if *record {
		if err := recordResults(ctx, cat, obsind, located.Results); err != nil {
			return err
		}
	}
	if *objloc != "" {
		if err := findres.SaveXML(*objloc, located.Objloc, *force); err != nil {
			return err
		}
	}
	return located.Results.Save(outputPath(*out, fs.Arg(0), ".findres.xml"), *force)
}

func recordResults(ctx context.Context, cat *catalog.Store, obsind uint, rs *findres.ResultSet) error {
	var found []catalog.Identified
	var adus []catalog.ADUCalc
	for _, r := range rs.Results {
		if r.Name == "" || r.Pixel == nil {
			continue
		}
		found = append(found, catalog.Identified{
			ObjName: r.Name,
			Col:     r.Pixel.Col,
			Row:     r.Pixel.Row,
			RADeg:   r.RA,
			DecDeg:  r.Dec,
			ApSize:  r.ApSize,
			Label:   r.Label,
		})
		adus = append(adus, catalog.ADUCalc{ObjName: r.Name, ApSize: r.ApSize, ADUs: r.ADUs})
	}
	return cat.RecordFound(ctx, obsind, found, adus)
}

func runApply(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("apply", flag.ContinueOnError)
	par := fs.String("searchpar", "", "SEARCHPAR document overriding the configured search parameters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 3 {
		return fmt.Errorf("usage: remfind apply [flags] <image.fits> <findres.xml> <edits.xml>")
	}
	p, err := searchParams(cfg, *par)
	if err != nil {
		return err
	}
	img, err := loadImage(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer img.Close()

	rs, err := findres.LoadResultSet(fs.Arg(1))
	if err != nil {
		return err
	}
	rs.RefreshPixels(img)
	log, err := edits.Load(fs.Arg(2))
	if err != nil {
		return err
	}
	pending := log.Pending()
	if err := log.Apply(rs, &edits.Env{Image: img, Params: p}); err != nil {
		return err
	}
	fmt.Printf("Applied %d edits to %s\n", pending, log.Vicinity)
	printResults(rs)

	if err := rs.Save(fs.Arg(1), true); err != nil {
		return err
	}
	return log.Save(fs.Arg(2), true)
}

func runOverlay(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("overlay", flag.ContinueOnError)
	out := fs.String("o", "", "JPEG file (default <image>.jpg)")
	palette := fs.String("palette", "", "palette name")
	width := fs.Int("width", 0, "output width in pixels")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: remfind overlay [flags] <image.fits> <findres.xml>")
	}
	if *palette != "" {
		cfg.Overlay.Palette = *palette
	}
	if *width > 0 {
		cfg.Overlay.Width = *width
	}
	opt, err := cfg.OverlayOptions()
	if err != nil {
		return err
	}

	img, err := loadImage(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer img.Close()
	rs, err := findres.LoadResultSet(fs.Arg(1))
	if err != nil {
		return err
	}
	rs.RefreshPixels(img)

	path := outputPath(*out, fs.Arg(0), ".jpg")
	if err := overlay.RenderFile(path, img, rs, opt); err != nil {
		return err
	}
	fmt.Printf("Overlay saved to: %s\n", path)
	return nil
}

func runConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	searchpar := fs.String("searchpar", "", "write the search parameters as a SEARCHPAR document")
	geometry := fs.String("geometry", "", "write the geometry as a REMGEOM document")
	force := fs.Bool("force", false, "overwrite existing documents")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *searchpar != "" {
		if err := config.SaveSearchParams(*searchpar, &cfg.Search, *force); err != nil {
			return err
		}
	}
	if *geometry != "" {
		if err := config.SaveGeometry(*geometry, &cfg.Geometry, *force); err != nil {
			return err
		}
	}
	return config.Dump(os.Stdout, cfg)
}

func printResults(rs *findres.ResultSet) {
	fmt.Printf("%d objects\n", rs.Len())
	for i := range rs.Results {
		fmt.Printf("  %s\n", rs.Results[i].String())
	}
}
