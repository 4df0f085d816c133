package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	cli "github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mobiparse/state"
)

func List(ctx *cli.Context) error {
	env := state.Get(ctx)
	log := env.Log.Named(driverName)

	entries, err := os.ReadDir(env.Cfg.CatalogPath)
	if err != nil {
		return fmt.Errorf("unable to read catalog directory '%s': %w", env.Cfg.CatalogPath, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if filepath.Ext(e.Name()) != ".db" {
			continue
		}
		err := report(filepath.Join(env.Cfg.CatalogPath, e.Name()), env.Log)
		if err != nil {
			log.Error("Unable to report catalog", zap.String("path", filepath.Join(env.Cfg.CatalogPath, e.Name())), zap.Error(err))
		}
	}
	return nil
}

func report(dbpath string, log *zap.Logger) error {
	conn, err := Connect(dbpath, log)
	if err != nil {
		return err
	}
	defer conn.Disconnect()

	books, err := conn.Entries()
	if err != nil {
		return err
	}
	log = conn.log
	log.Info("Report", zap.String("path", dbpath), zap.Int("books", len(books)))
	for _, b := range books {
		rs, err := conn.Resources(b.ID)
		if err != nil {
			return err
		}
		log.Info("Book",
			zap.Int64("id", b.ID),
			zap.String("title", b.Title),
			zap.String("format", b.Format),
			zap.String("destination", b.Destination),
			zap.Int("resources", len(rs)),
			zap.String("size", humanize.IBytes(uint64(rs.Size()))),
			zap.String("extracted", humanize.Time(b.Created)),
		)
	}
	return nil
}
