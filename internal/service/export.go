// Path: internal/service/export.go
package service

import (
	"context"
	"fmt"
	"io"

	"recipe-finder/internal/favorites"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Favorites"

// ExportFavorites writes the favorite recipes as an .xlsx workbook, one row
// per recipe that could be loaded.
func (s *Service) ExportFavorites(ctx context.Context, w io.Writer) error {
	details := favorites.FetchAll(ctx, s.favs.IDs(), s.cfg.FavoritesBatchSize, s.fetcher.FetchDetail)

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("export favorites: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("export favorites: %w", err)
	}
	header := []interface{}{"id", "title", "servings", "ready_in", "source_url"}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("export favorites: %w", err)
	}
	for i, d := range details {
		row := []interface{}{int(d.ID), d.Title, d.ServingsLabel(), d.ReadyLabel(), d.SourceURL}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("export favorites: %w", err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("export favorites: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("export favorites: %w", err)
	}
	s.log.Info("favorites exported", "count", len(details))
	return nil
}
