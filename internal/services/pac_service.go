package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	apperrors "valore/internal/errors"
	"valore/internal/logger"
	"valore/internal/models"
	"valore/internal/pagination"
)

// pacService handles recurring investment plans: rule lifecycle, due-date
// materialization, and settling executions into ledger entries.
type pacService struct {
	db           *gorm.DB
	prices       PriceServicer
	transactions TransactionServicer
}

// NewPacService creates a new PacServicer.
func NewPacService(db *gorm.DB, prices PriceServicer, transactions TransactionServicer) PacServicer {
	return &pacService{db: db, prices: prices, transactions: transactions}
}

func validatePacInput(input *PacRuleInput) error {
	switch input.Mode {
	case models.PacModeAmount:
		if input.Amount <= 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount mode requires a positive amount")
		}
	case models.PacModeQuantity:
		if input.Quantity <= 0 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Quantity mode requires a positive quantity")
		}
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Unsupported plan mode")
	}

	switch input.Frequency {
	case models.PacMonthly:
		if input.DayOfMonth < 1 || input.DayOfMonth > 31 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Day of month must be between 1 and 31")
		}
	case models.PacWeekly, models.PacBiweekly:
		if input.DayOfWeek < 0 || input.DayOfWeek > 6 {
			return apperrors.WithMessage(apperrors.ErrInvalidInput, "Day of week must be between 0 and 6")
		}
	default:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Unsupported plan frequency")
	}

	if input.StartDate.IsZero() {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Start date is required")
	}
	if input.EndDate != nil && !input.EndDate.After(input.StartDate) {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "End date must be after start date")
	}
	return nil
}

// CreateRule creates a recurring plan for an asset in the portfolio.
func (s *pacService) CreateRule(userID, portfolioID string, input PacRuleInput) (*models.PacRule, error) {
	if _, err := getOwnedPortfolio(s.db, userID, portfolioID); err != nil {
		return nil, err
	}
	if err := validatePacInput(&input); err != nil {
		return nil, err
	}

	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", input.AssetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	rule := &models.PacRule{
		PortfolioID: portfolioID,
		AssetID:     input.AssetID,
		Mode:        input.Mode,
		Amount:      input.Amount,
		Quantity:    input.Quantity,
		Frequency:   input.Frequency,
		DayOfMonth:  input.DayOfMonth,
		DayOfWeek:   input.DayOfWeek,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		AutoExecute: input.AutoExecute,
		Active:      true,
	}
	if err := s.db.Create(rule).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// GetPortfolioRules returns a paginated list of the portfolio's plans.
func (s *pacService) GetPortfolioRules(userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.PacRule], error) {
	if _, err := getOwnedPortfolio(s.db, userID, portfolioID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.Model(&models.PacRule{}).Where("portfolio_id = ?", portfolioID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rules []models.PacRule
	if err := base.Preload("Asset").Order("created_at ASC").
		Scopes(pagination.Paginate(page)).Find(&rules).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(rules, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// getOwnedRule loads a plan and checks portfolio ownership.
func getOwnedRule(db *gorm.DB, userID, ruleID string) (*models.PacRule, error) {
	var rule models.PacRule
	err := db.Joins("JOIN portfolios ON portfolios.id = pac_rules.portfolio_id").
		Where("pac_rules.id = ? AND portfolios.user_id = ?", ruleID, userID).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPacRuleNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &rule, nil
}

// UpdateRule mutates a plan's editable fields. Mode, frequency, asset,
// and start date are immutable; delete and recreate to change them.
func (s *pacService) UpdateRule(userID, ruleID string, update PacRuleUpdate) (*models.PacRule, error) {
	rule, err := getOwnedRule(s.db, userID, ruleID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Amount != nil {
		if rule.Mode == models.PacModeAmount && *update.Amount <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Amount must be positive")
		}
		updates["amount"] = *update.Amount
	}
	if update.Quantity != nil {
		if rule.Mode == models.PacModeQuantity && *update.Quantity <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Quantity must be positive")
		}
		updates["quantity"] = *update.Quantity
	}
	if update.DayOfMonth != nil {
		if *update.DayOfMonth < 1 || *update.DayOfMonth > 31 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Day of month must be between 1 and 31")
		}
		updates["day_of_month"] = *update.DayOfMonth
	}
	if update.DayOfWeek != nil {
		if *update.DayOfWeek < 0 || *update.DayOfWeek > 6 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Day of week must be between 0 and 6")
		}
		updates["day_of_week"] = *update.DayOfWeek
	}
	if update.EndDate != nil {
		if !update.EndDate.After(rule.StartDate) {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "End date must be after start date")
		}
		updates["end_date"] = *update.EndDate
	}
	if update.AutoExecute != nil {
		updates["auto_execute"] = *update.AutoExecute
	}
	if update.Active != nil {
		updates["active"] = *update.Active
	}
	if len(updates) == 0 {
		return rule, nil
	}

	if err := s.db.Model(rule).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rule, nil
}

// DeleteRule removes a plan. Its settled executions are kept for history.
func (s *pacService) DeleteRule(userID, ruleID string) error {
	rule, err := getOwnedRule(s.db, userID, ruleID)
	if err != nil {
		return err
	}
	return s.db.Delete(rule).Error
}

// GenerateDue materializes the plan's due dates up to now and returns the
// executions created by this call. The unique (rule, due date) index makes
// repeated generation idempotent.
func (s *pacService) GenerateDue(userID, ruleID string, now time.Time) ([]models.PacExecution, error) {
	rule, err := getOwnedRule(s.db, userID, ruleID)
	if err != nil {
		return nil, err
	}
	return s.generateDueForRule(rule, now)
}

func (s *pacService) generateDueForRule(rule *models.PacRule, now time.Time) ([]models.PacExecution, error) {
	if !rule.Active {
		return []models.PacExecution{}, nil
	}

	until := now
	if rule.EndDate != nil && rule.EndDate.Before(until) {
		until = *rule.EndDate
	}

	created := make([]models.PacExecution, 0)
	for _, due := range dueDates(rule, until) {
		exec := models.PacExecution{
			RuleID:  rule.ID,
			DueDate: due,
			Status:  models.PacExecPending,
		}
		result := s.db.Where("rule_id = ? AND due_date = ?", rule.ID, due).FirstOrCreate(&exec)
		if result.Error != nil {
			return created, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
		}
		if result.RowsAffected > 0 {
			created = append(created, exec)
		}
	}
	return created, nil
}

// dueDates enumerates the plan's schedule from its start date through
// until, inclusive. Monthly plans clamp the day to short months, so a
// day-31 plan fires on February 28th.
func dueDates(rule *models.PacRule, until time.Time) []time.Time {
	start := rule.StartDate.Truncate(24 * time.Hour)
	until = until.Truncate(24 * time.Hour)
	if until.Before(start) {
		return nil
	}

	var dates []time.Time
	switch rule.Frequency {
	case models.PacMonthly:
		cursor := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		for !cursor.After(until) {
			day := rule.DayOfMonth
			if last := daysInMonth(cursor.Year(), cursor.Month()); day > last {
				day = last
			}
			due := time.Date(cursor.Year(), cursor.Month(), day, 0, 0, 0, 0, time.UTC)
			if !due.Before(start) && !due.After(until) {
				dates = append(dates, due)
			}
			cursor = cursor.AddDate(0, 1, 0)
		}
	case models.PacWeekly, models.PacBiweekly:
		step := 7
		if rule.Frequency == models.PacBiweekly {
			step = 14
		}
		// First occurrence of the scheduled weekday on or after the start.
		offset := (rule.DayOfWeek - int(start.Weekday()) + 7) % 7
		cursor := start.AddDate(0, 0, offset)
		for !cursor.After(until) {
			dates = append(dates, cursor)
			cursor = cursor.AddDate(0, 0, step)
		}
	}
	return dates
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ListExecutions returns a paginated list of a plan's executions, newest
// due date first.
func (s *pacService) ListExecutions(userID, ruleID string, page pagination.PageRequest) (*pagination.PageResponse[models.PacExecution], error) {
	if _, err := getOwnedRule(s.db, userID, ruleID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.Model(&models.PacExecution{}).Where("rule_id = ?", ruleID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var execs []models.PacExecution
	if err := base.Order("due_date DESC").Scopes(pagination.Paginate(page)).Find(&execs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(execs, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// getOwnedExecution loads an execution and checks ownership through its
// rule's portfolio.
func getOwnedExecution(db *gorm.DB, userID, executionID string) (*models.PacExecution, error) {
	var exec models.PacExecution
	err := db.Joins("JOIN pac_rules ON pac_rules.id = pac_executions.rule_id").
		Joins("JOIN portfolios ON portfolios.id = pac_rules.portfolio_id").
		Where("pac_executions.id = ? AND portfolios.user_id = ?", executionID, userID).
		Preload("Rule").
		First(&exec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPacExecutionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &exec, nil
}

// ConfirmExecution settles a pending execution into a buy transaction at
// the latest recorded price.
func (s *pacService) ConfirmExecution(userID, executionID string) (*models.PacExecution, error) {
	exec, err := getOwnedExecution(s.db, userID, executionID)
	if err != nil {
		return nil, err
	}
	if exec.Status != models.PacExecPending {
		return nil, apperrors.ErrPacExecutionSettled
	}
	if err := s.executeOne(userID, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

// executeOne prices and records the purchase for a pending execution,
// then marks it executed. Rule is expected to be preloaded.
func (s *pacService) executeOne(userID string, exec *models.PacExecution) error {
	rule := exec.Rule
	if rule == nil {
		return apperrors.ErrPacRuleNotFound
	}

	point, err := s.prices.LatestPrice(rule.AssetID)
	if err != nil {
		return err
	}
	if !point.OK || point.Price <= 0 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "No price available for the plan's asset")
	}

	quantity := rule.Quantity
	if rule.Mode == models.PacModeAmount {
		quantity = rule.Amount / point.Price
	}

	assetID := rule.AssetID
	txn, err := s.transactions.CreateTransaction(userID, rule.PortfolioID, TransactionInput{
		AssetID:  &assetID,
		Side:     models.SideBuy,
		TradeAt:  exec.DueDate,
		Quantity: quantity,
		Price:    point.Price,
		Source:   models.SourcePac,
	})
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":         models.PacExecExecuted,
		"transaction_id": txn.ID,
	}
	if err := s.db.Model(exec).Updates(updates).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	exec.Status = models.PacExecExecuted
	exec.TransactionID = &txn.ID
	return nil
}

// SkipExecution marks a pending execution as skipped without trading.
func (s *pacService) SkipExecution(userID, executionID string) (*models.PacExecution, error) {
	exec, err := getOwnedExecution(s.db, userID, executionID)
	if err != nil {
		return nil, err
	}
	if exec.Status != models.PacExecPending {
		return nil, apperrors.ErrPacExecutionSettled
	}
	if err := s.db.Model(exec).Update("status", models.PacExecSkipped).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	exec.Status = models.PacExecSkipped
	return exec, nil
}

// RunScheduler materializes due dates for every active plan and settles
// pending executions of auto-execute plans. A failure on one plan is
// recorded and the run continues.
func (s *pacService) RunScheduler(now time.Time) (generated, executed int, err error) {
	var rules []models.PacRule
	if err := s.db.Where("active = ?", true).Find(&rules).Error; err != nil {
		return 0, 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	log := logger.Get()
	for i := range rules {
		rule := &rules[i]

		created, genErr := s.generateDueForRule(rule, now)
		if genErr != nil {
			log.Errorw("due-date generation failed", "rule_id", rule.ID, "error", genErr)
			continue
		}
		generated += len(created)

		if !rule.AutoExecute {
			continue
		}

		var portfolio models.Portfolio
		if err := s.db.First(&portfolio, "id = ?", rule.PortfolioID).Error; err != nil {
			log.Errorw("portfolio lookup failed", "rule_id", rule.ID, "error", err)
			continue
		}

		var pending []models.PacExecution
		if err := s.db.Where("rule_id = ? AND status = ? AND due_date <= ?",
			rule.ID, models.PacExecPending, now).Find(&pending).Error; err != nil {
			log.Errorw("pending lookup failed", "rule_id", rule.ID, "error", err)
			continue
		}

		for j := range pending {
			exec := &pending[j]
			exec.Rule = rule
			if execErr := s.executeOne(portfolio.UserID, exec); execErr != nil {
				s.db.Model(exec).Updates(map[string]interface{}{
					"status":         models.PacExecFailed,
					"failure_reason": execErr.Error(),
				})
				log.Warnw("plan execution failed", "execution_id", exec.ID, "error", execErr)
				continue
			}
			executed++
		}
	}
	return generated, executed, nil
}
