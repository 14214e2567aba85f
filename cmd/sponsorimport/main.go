// Command sponsorimport bulk-loads sponsor locations from a CSV file with a
// header row naming keyword, lat and lng columns.
//
//	sponsorimport <owner-email> <file.csv>
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/samirrijal/detour/internal/adapters/postgres"
	"github.com/samirrijal/detour/internal/core/domain"
	"github.com/samirrijal/detour/internal/pkg/config"
	"github.com/samirrijal/detour/internal/pkg/logging"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: sponsorimport <owner-email> <file.csv>")
		os.Exit(2)
	}
	email, path := os.Args[1], os.Args[2]

	cfg, err := config.Load("detour-sponsorimport")
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 2)
	if err != nil {
		slog.Error("database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	owner, err := postgres.NewUserRepo(db).GetByEmail(ctx, email)
	if err != nil {
		slog.Error("lookup owner", "email", email, "error", err)
		os.Exit(1)
	}
	if !owner.IsSponsor() {
		slog.Error("owner lacks sponsor access", "email", email, "access_level", owner.AccessLevel)
		os.Exit(1)
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Error("open csv", "path", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	sponsors, skipped, err := readSponsors(f, owner.ID)
	if err != nil {
		slog.Error("read csv", "path", path, "error", err)
		os.Exit(1)
	}
	for _, e := range skipped {
		slog.Warn("row skipped", "error", e)
	}

	n, err := postgres.NewSponsorRepo(db).CreateMany(ctx, sponsors)
	if err != nil {
		slog.Error("import failed", "stored", n, "error", err)
		os.Exit(1)
	}
	slog.Info("sponsor import finished", "stored", n, "skipped", len(skipped))
}

// readSponsors parses CSV rows into sponsor locations owned by ownerID. Rows
// that cannot be used are reported in skipped and left out.
func readSponsors(r io.Reader, ownerID string) (sponsors []domain.SponsorLocation, skipped []error, err error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("header: %w", err)
	}
	cols := indexColumns(header)
	for _, name := range []string{"keyword", "lat", "lng"} {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			skipped = append(skipped, fmt.Errorf("line %d: %w", line, err))
			continue
		}

		keyword := getField(record, cols, "keyword")
		lat, latErr := strconv.ParseFloat(getField(record, cols, "lat"), 64)
		lng, lngErr := strconv.ParseFloat(getField(record, cols, "lng"), 64)
		switch {
		case keyword == "":
			skipped = append(skipped, fmt.Errorf("line %d: empty keyword", line))
			continue
		case latErr != nil || lngErr != nil:
			skipped = append(skipped, fmt.Errorf("line %d: bad coordinate", line))
			continue
		case lat < -90 || lat > 90 || lng < -180 || lng > 180:
			skipped = append(skipped, fmt.Errorf("line %d: coordinate out of range", line))
			continue
		}

		sponsors = append(sponsors, domain.SponsorLocation{
			OwnerID:  ownerID,
			Keyword:  keyword,
			Location: domain.Coordinate{Lat: lat, Lng: lng},
		})
	}
	return sponsors, skipped, nil
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		// Strip BOM from first column
		col = strings.TrimPrefix(col, "\xef\xbb\xbf")
		m[strings.ToLower(strings.TrimSpace(col))] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
