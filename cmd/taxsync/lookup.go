package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"taxsync/internal/config"
	"taxsync/internal/crawler"
	"taxsync/internal/formatter"
	"taxsync/internal/logger"
	"taxsync/internal/models"
	"taxsync/internal/normalizer"
	"taxsync/internal/payload"
)

// errScrapeFailed sets a non-zero exit once the failure record is printed.
var errScrapeFailed = errors.New("scrape attempt failed")

type lookupFlags struct {
	provider string
	id       string
	address  string
	parcel   string
	unit     string
	callback string
	replay   string
	json     bool
}

func newLookupCmd(g *globalFlags) *cobra.Command {
	f := &lookupFlags{}

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Look up one property on its jurisdiction's portal",
		Long: "Runs one jurisdiction adapter and prints the normalized record. " +
			"A property that is not found is still a successful run.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}

			prop, err := f.property(cfg)
			if err != nil {
				return err
			}

			if f.callback != "" {
				if err := config.ValidateCallbackURL(f.callback); err != nil {
					return err
				}
			}

			return runLookup(cmd.Context(), cfg, log, prop, f, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&f.provider, "provider", "", "Provider tag, as listed by the providers command")
	cmd.Flags().StringVar(&f.id, "id", "", "Roster property id")
	cmd.Flags().StringVar(&f.address, "address", "", "Street address to search")
	cmd.Flags().StringVar(&f.parcel, "parcel", "", "Parcel identifier to search")
	cmd.Flags().StringVar(&f.unit, "unit", "", "Unit designator for multi-unit parcels")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print only the record as one JSON object")
	cmd.Flags().StringVar(&f.callback, "callback", "", "POST the record to this URL")
	cmd.Flags().StringVar(&f.replay, "replay", "", "Replay dumped pages from this directory instead of a browser")

	return cmd
}

// property resolves the flags to a roster entry or an ad-hoc property.
func (f *lookupFlags) property(cfg *config.Config) (models.Property, error) {
	prop := models.Property{ID: f.id}

	if f.id != "" {
		found, ok := cfg.FindProperty(f.id)
		if ok {
			prop = found
		}
	}

	if f.provider != "" {
		prop.Provider = models.Provider(f.provider)
	}

	if f.address != "" {
		prop.Address = f.address
	}

	if f.parcel != "" {
		prop.Parcel = f.parcel
	}

	if f.unit != "" {
		prop.Unit = f.unit
	}

	if err := requireFlagValue("provider", string(prop.Provider)); err != nil {
		return prop, err
	}

	if !prop.Provider.Valid() {
		return prop, fmt.Errorf("%w: %s", config.ErrUnknownProvider, prop.Provider)
	}

	if prop.Address == "" && prop.Parcel == "" {
		return prop, fmt.Errorf("one of --address or --parcel is required: %w", config.ErrPropertyMissingKey)
	}

	return prop, nil
}

func runLookup(ctx context.Context, cfg *config.Config, log *logger.Logger, prop models.Property, f *lookupFlags, out io.Writer) error {
	scraper := crawler.NewScraper(cfg, log)
	if f.replay != "" {
		scraper.WithReplay(f.replay)
	}

	log.Info(fmt.Sprintf("🌐 Looking up %s on %s", prop, prop.Provider.Label()))

	start := time.Now()

	var rec *models.TaxRecord

	raw, err := scraper.Scrape(ctx, prop)
	if err != nil {
		log.Error(fmt.Sprintf("❌ Lookup could not start: %v", err))

		rec = normalizer.FailureRecord(prop, models.CodeFor(err), err.Error(), time.Now())
	} else {
		var integrityErr error

		rec, integrityErr = normalizer.NewProcessor().Process(raw)
		if integrityErr != nil {
			log.Warn(fmt.Sprintf("⚠️  %v", integrityErr))
		}
	}

	log.Info(fmt.Sprintf("🔎 %s (%s)", normalizer.String(rec), time.Since(start).Round(time.Millisecond)))

	if f.json {
		enc := json.NewEncoder(out)
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	} else {
		fmt.Fprint(out, formatter.Report(rec))
	}

	if f.callback != "" {
		d := payload.NewDeliverer(f.callback, cfg.CallbackTimeout(), log)
		d.SetSigningSecret(cfg.Callback.SigningSecret)

		// Delivery does not change the exit status.
		if _, err := d.Deliver(ctx, rec); err != nil {
			log.Error(fmt.Sprintf("❌ Delivery failed: %v", err))
		}
	}

	if attemptFailed(rec) {
		return errScrapeFailed
	}

	return nil
}

// attemptFailed reports whether the scrape itself failed, as opposed to the
// portal answering that the property does not exist.
func attemptFailed(rec *models.TaxRecord) bool {
	return !rec.Success && rec.ErrorCode != models.CodeParseMismatch
}
