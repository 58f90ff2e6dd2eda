package pricing

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/user/marketgeo/internal/models"
)

// Image allowances used when a plan is missing or carries no limit.
const (
	DefaultFreeImages = 2
	DefaultBasicLimit = 5
)

const quoteIDPrefix = "qt_"

// Calculator turns a page type, an image count and the image pricing
// plans into a CostBreakdown. It never fails: incomplete plan data
// yields a degraded breakdown priced on the page type alone.
type Calculator struct {
	logger         *zap.Logger
	defaultGateway string
	newID          func() string
}

// CalculatorOption customizes a Calculator.
type CalculatorOption func(*Calculator)

// WithDefaultGateway sets the gateway reported for empty price maps.
func WithDefaultGateway(gateway string) CalculatorOption {
	return func(c *Calculator) {
		if gateway != "" {
			c.defaultGateway = gateway
		}
	}
}

// WithIDGenerator replaces the quote ID generator.
func WithIDGenerator(fn func() string) CalculatorOption {
	return func(c *Calculator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// NewCalculator creates a Calculator.
func NewCalculator(logger *zap.Logger, opts ...CalculatorOption) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Calculator{
		logger:         logger,
		defaultGateway: DefaultGateway,
		newID:          func() string { return quoteIDPrefix + ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ===========================================
// Cost Calculation
// ===========================================

// CalculateTotalCost prices a page of pageType with imageCount images.
//
// Images up to the Free allowance cost nothing. Up to the Basic limit a
// single flat Basic fee applies, whatever the count. Past the Basic
// limit every extra image is charged the Pro price on top of the Basic
// fee. Negative counts are treated as zero.
func (c *Calculator) CalculateTotalCost(
	pageType models.PageType,
	imageCount int,
	plans []models.PricingPlan,
	currency models.CurrencyConfig,
) models.CostBreakdown {
	if imageCount < 0 {
		imageCount = 0
	}
	cc := currency.CountryCode

	pageEntry := resolvePriceEntry(pageType.Prices, cc, c.defaultGateway)
	pageCost := round2(pageEntry.Price)

	breakdown := models.CostBreakdown{
		QuoteID:  c.newID(),
		Currency: currency,
		PageType: models.PageTypeCharge{
			ID:      pageType.ID,
			Name:    pageType.Name,
			Cost:    pageCost,
			Gateway: pageEntry.Gateway,
		},
		Images: models.ImageCharge{Count: imageCount},
	}
	breakdown.Breakdown = append(breakdown.Breakdown,
		c.line(currency, 1, pageType.Name+" page", pageCost))

	free, basic, pro := findPlan(plans, models.PlanFree), findPlan(plans, models.PlanBasic), findPlan(plans, models.PlanPro)

	freeImages := DefaultFreeImages
	if free != nil && free.ImageLimit > 0 {
		freeImages = free.ImageLimit
	}
	basicLimit := DefaultBasicLimit
	if basic != nil && basic.ImageLimit > 0 {
		basicLimit = basic.ImageLimit
	}
	if basicLimit < freeImages {
		basicLimit = freeImages
	}
	breakdown.Images.FreeImages = freeImages
	breakdown.Images.BasicLimit = basicLimit

	if basic == nil || pro == nil {
		c.logger.Warn("image pricing plans missing, pricing page type only",
			zap.Bool("basicFound", basic != nil),
			zap.Bool("proFound", pro != nil),
			zap.Int("plans", len(plans)),
		)
		breakdown.Degraded = true
		if imageCount > 0 {
			breakdown.Breakdown = append(breakdown.Breakdown,
				c.line(currency, imageCount, "Images (image pricing unavailable)", 0))
		}
		return c.finish(breakdown)
	}

	basicPrice := round2(resolvePriceEntry(basic.Prices, cc, c.defaultGateway).Price)
	proPrice := round2(resolvePriceEntry(pro.Prices, cc, c.defaultGateway).Price)
	breakdown.Images.BasicPrice = basicPrice
	breakdown.Images.ProPrice = proPrice

	if imageCount > 0 {
		breakdown.Breakdown = append(breakdown.Breakdown,
			c.line(currency, min(imageCount, freeImages), fmt.Sprintf("Free images (first %d)", freeImages), 0))
	}

	var imageCost float64
	if imageCount > freeImages {
		imageCost = basicPrice
		breakdown.Breakdown = append(breakdown.Breakdown, c.line(currency,
			min(imageCount, basicLimit)-freeImages,
			fmt.Sprintf("Basic image bundle (images %d–%d, flat fee)", freeImages+1, basicLimit),
			basicPrice))
	}
	if imageCount > basicLimit {
		extra := imageCount - basicLimit
		extraCost := round2(float64(extra) * proPrice)
		imageCost += extraCost
		breakdown.Breakdown = append(breakdown.Breakdown, c.line(currency,
			extra,
			fmt.Sprintf("Additional images at %s each", FormatMoney(currency.Symbol, proPrice)),
			extraCost))
	}
	breakdown.Images.Cost = round2(imageCost)

	return c.finish(breakdown)
}

func (c *Calculator) finish(b models.CostBreakdown) models.CostBreakdown {
	b.Subtotal = round2(b.PageType.Cost + b.Images.Cost)
	b.Tax = 0
	b.Total = b.Subtotal
	b.IsFree = b.Total == 0
	b.RequiresPayment = !b.IsFree
	if !b.IsFree {
		gateway := b.PageType.Gateway
		if gateway == "" {
			gateway = c.defaultGateway
		}
		b.PrimaryGateway = &gateway
	}
	return b
}

func (c *Calculator) line(currency models.CurrencyConfig, qty int, desc string, cost float64) models.LineItem {
	return models.LineItem{
		Quantity:    qty,
		Description: desc,
		Cost:        cost,
		Display:     FormatMoney(currency.Symbol, cost),
	}
}

func findPlan(plans []models.PricingPlan, name string) *models.PricingPlan {
	for i := range plans {
		if strings.EqualFold(strings.TrimSpace(plans[i].Name), name) {
			return &plans[i]
		}
	}
	return nil
}
