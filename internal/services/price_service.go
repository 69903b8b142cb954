package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"valore/internal/analytics"
	apperrors "valore/internal/errors"
	"valore/internal/models"
)

// priceService resolves prices and FX rates from recorded daily bars.
type priceService struct {
	db          *gorm.DB
	concurrency int
	timeout     time.Duration
}

// NewPriceService creates a new PriceServicer. concurrency caps how many
// assets are resolved in parallel during batch pricing; timeout bounds
// each per-asset resolution.
func NewPriceService(db *gorm.DB, concurrency int, timeout time.Duration) PriceServicer {
	if concurrency <= 0 {
		concurrency = 8
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &priceService{db: db, concurrency: concurrency, timeout: timeout}
}

// LatestPrice returns the most recent recorded close for the asset.
// A missing observation is not an error; OK is false.
func (s *priceService) LatestPrice(assetID string) (analytics.PricePoint, error) {
	return s.priceQuery(s.db, assetID, nil)
}

// PriceOnOrBefore returns the most recent close at or before the date.
func (s *priceService) PriceOnOrBefore(assetID string, date time.Time) (analytics.PricePoint, error) {
	return s.priceQuery(s.db, assetID, &date)
}

func (s *priceService) priceQuery(db *gorm.DB, assetID string, date *time.Time) (analytics.PricePoint, error) {
	query := db.Where("asset_id = ?", assetID)
	if date != nil {
		query = query.Where("date <= ?", *date)
	}

	var bar models.PriceBar
	if err := query.Order("date DESC").First(&bar).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return analytics.PricePoint{}, nil
		}
		return analytics.PricePoint{}, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return analytics.PricePoint{Price: bar.Close, AsOf: bar.Date, OK: true}, nil
}

// FxRateOnOrBefore returns the rate converting one unit of base into
// quote, using the most recent observation at or before the date. The
// inverse pair is consulted when the direct pair has no observation.
func (s *priceService) FxRateOnOrBefore(base, quote string, date time.Time) (float64, bool, error) {
	return s.fxQuery(s.db, base, quote, date)
}

func (s *priceService) fxQuery(db *gorm.DB, base, quote string, date time.Time) (float64, bool, error) {
	if base == quote {
		return 1, true, nil
	}

	var fx models.FxRate
	err := db.Where("base_currency = ? AND quote_currency = ? AND date <= ?", base, quote, date).
		Order("date DESC").First(&fx).Error
	if err == nil {
		return fx.Rate, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	err = db.Where("base_currency = ? AND quote_currency = ? AND date <= ?", quote, base, date).
		Order("date DESC").First(&fx).Error
	if err == nil && fx.Rate != 0 {
		return 1 / fx.Rate, true, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return 0, false, nil
}

// ResolvePricing resolves current and previous-close pricing for a set of
// assets, converting to the portfolio's base currency. Assets resolve
// independently and in parallel, capped at the configured concurrency so a
// large portfolio cannot flood the store. A failed or missing lookup for
// one asset never aborts the batch; that asset simply resolves with OK
// flags unset and the valuation layer reports it as a warning.
func (s *priceService) ResolvePricing(ctx context.Context, assets []models.Asset, baseCurrency string, asOf time.Time) (map[string]analytics.AssetPricing, error) {
	pricing := make(map[string]analytics.AssetPricing, len(assets))

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.concurrency)
	)

	for i := range assets {
		asset := assets[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			resolved := s.resolveAsset(ctx, asset, baseCurrency, asOf)

			mu.Lock()
			pricing[asset.ID] = resolved
			mu.Unlock()
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return pricing, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return pricing, nil
}

// resolveAsset prices a single asset with a bounded deadline.
func (s *priceService) resolveAsset(ctx context.Context, asset models.Asset, baseCurrency string, asOf time.Time) analytics.AssetPricing {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	db := s.db.WithContext(ctx)

	var resolved analytics.AssetPricing

	current, err := s.priceQueryAt(db, asset.ID, asOf)
	if err != nil || !current.OK {
		return resolved
	}
	resolved.Current = current

	rate, ok, err := s.fxQuery(db, asset.QuoteCurrency, baseCurrency, current.AsOf)
	if err == nil && ok {
		resolved.FxRate = rate
		resolved.FxOK = true
	}

	// Previous trading day close: the last bar strictly before the
	// current observation's date.
	prevDate := current.AsOf.AddDate(0, 0, -1)
	previous, err := s.priceQueryAt(db, asset.ID, prevDate)
	if err != nil || !previous.OK {
		return resolved
	}
	resolved.Previous = previous

	prevRate, prevOK, err := s.fxQuery(db, asset.QuoteCurrency, baseCurrency, previous.AsOf)
	if err == nil && prevOK {
		resolved.PrevFx = prevRate
		resolved.PrevFxOK = true
	}
	return resolved
}

func (s *priceService) priceQueryAt(db *gorm.DB, assetID string, date time.Time) (analytics.PricePoint, error) {
	return s.priceQuery(db, assetID, &date)
}

// RecordBars bulk-inserts daily closes, skipping duplicates, and returns
// the count recorded.
func (s *priceService) RecordBars(bars []PriceBarInput) (int, error) {
	if len(bars) == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Bars array is empty")
	}

	count := 0
	for _, b := range bars {
		bar := models.PriceBar{
			AssetID: b.AssetID,
			Date:    b.Date.Truncate(24 * time.Hour),
			Close:   b.Close,
		}
		result := s.db.Where("asset_id = ? AND date = ?", bar.AssetID, bar.Date).
			FirstOrCreate(&bar)
		if result.Error != nil {
			return count, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected > 0 {
			count++
		}
	}
	return count, nil
}

// RecordFxRates bulk-inserts FX observations, skipping duplicates, and
// returns the count recorded.
func (s *priceService) RecordFxRates(rates []FxRateInput) (int, error) {
	if len(rates) == 0 {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput, "Rates array is empty")
	}

	count := 0
	for _, r := range rates {
		fx := models.FxRate{
			BaseCurrency:  r.BaseCurrency,
			QuoteCurrency: r.QuoteCurrency,
			Date:          r.Date.Truncate(24 * time.Hour),
			Rate:          r.Rate,
		}
		result := s.db.Where("base_currency = ? AND quote_currency = ? AND date = ?",
			fx.BaseCurrency, fx.QuoteCurrency, fx.Date).FirstOrCreate(&fx)
		if result.Error != nil {
			return count, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected > 0 {
			count++
		}
	}
	return count, nil
}
