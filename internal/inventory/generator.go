package inventory

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"
)

var (
	seedCategories = []string{"Electronics", "Clothing", "Food", "Books", "Home & Garden"}
	seedBrands     = []string{"Apple", "Samsung", "Nike", "Adidas", "Sony", "Dell", "HP"}
	seedSuppliers  = []string{"TechCorp", "FashionHub", "FoodDist", "BookWorld", "GardenPlus"}
	seedCountries  = []string{"US", "DE", "GB", "IN", "JP", "BR"}
	seedTrends     = []string{"rising", "stable", "declining"}
)

// Generator produces realistic demo inventory records. Output is deterministic for a seed.
type Generator struct {
	rnd      *rand.Rand
	sequence int64
	now      func() time.Time
}

func NewGenerator(seed int64) *Generator {
	return &Generator{
		rnd: rand.New(rand.NewSource(seed)),
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (g *Generator) Generate(n int) []Record {
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, g.NextRecord())
	}
	return records
}

func (g *Generator) NextRecord() Record {
	g.sequence++
	seq := g.sequence
	now := g.now()

	category := pickOne(g.rnd, seedCategories)
	brand := pickOne(g.rnd, seedBrands)
	supplier := pickOne(g.rnd, seedSuppliers)

	quantity := int64(g.rnd.Intn(100) + 1)
	// A slice of the catalogue is kept at or below threshold so low-stock queries have answers.
	if g.rnd.Intn(100) < 15 {
		quantity = int64(g.rnd.Intn(5))
	}
	threshold := int64(g.rnd.Intn(20) + 5)
	unitCost := round2(g.rnd.Float64()*50 + 10)
	sellingPrice := round2(g.rnd.Float64()*100 + 20)
	expiryDays := int64(g.rnd.Intn(365) + 30)
	expired := g.rnd.Intn(100) < 5

	status := "active"
	if g.rnd.Float64() <= 0.1 {
		status = "low_stock"
	}
	stockHealth := "good"
	if quantity < threshold {
		stockHealth = "critical"
	}
	var daysOutOfStock int64
	if quantity == 0 {
		daysOutOfStock = int64(g.rnd.Intn(5) + 1)
	}
	discountActive := g.rnd.Float64() > 0.7
	var discountPercent float64
	if discountActive {
		discountPercent = math.Round(g.rnd.Float64()*20 + 5)
	}

	return Record{
		ItemID:                fmt.Sprintf("item-%06d", seq),
		SKU:                   ptr(fmt.Sprintf("SKU-%04d", seq)),
		ItemName:              ptr(fmt.Sprintf("%s Product %d", brand, seq)),
		Brand:                 ptr(brand),
		Description:           ptr(fmt.Sprintf("High quality %s product", strings.ToLower(category))),
		Category:              ptr(category),
		Subcategory:           ptr(category + " Sub"),
		Tags:                  ptr(strings.ToLower(brand) + "," + strings.ToLower(category)),
		Status:                ptr(status),
		Quantity:              ptr(quantity),
		Threshold:             ptr(threshold),
		InitialQuantity:       ptr(int64(g.rnd.Intn(200) + 50)),
		SoldToday:             ptr(int64(g.rnd.Intn(10))),
		SalesVelocity:         ptr(round2(g.rnd.Float64() * 5)),
		StockHealth:           ptr(stockHealth),
		DaysOutOfStock:        ptr(daysOutOfStock),
		StockTurnoverRate:     ptr(round2(g.rnd.Float64() * 10)),
		StorageType:           ptr(pickOne(g.rnd, []string{"ambient", "refrigerated"})),
		LocationInStore:       ptr(fmt.Sprintf("Aisle %d", g.rnd.Intn(10)+1)),
		UnitCost:              ptr(unitCost),
		SellingPrice:          ptr(sellingPrice),
		MarginPercent:         ptr(round2(g.rnd.Float64()*40 + 10)),
		MarkupPercent:         ptr(round2(g.rnd.Float64()*60 + 20)),
		PotentialRevenue:      ptr(round2(float64(quantity) * sellingPrice)),
		TotalStockValue:       ptr(round2(float64(quantity) * unitCost)),
		DiscountActive:        ptr(discountActive),
		DiscountPercent:       ptr(discountPercent),
		LoyaltyPoints:         ptr(int64(g.rnd.Intn(100) + 10)),
		SupplierName:          ptr(supplier),
		SupplierContact:       ptr(fmt.Sprintf("+1-555-%04d", g.rnd.Intn(9000)+1000)),
		SupplierEmail:         ptr("contact@" + strings.ToLower(supplier) + ".com"),
		SupplierAddress:       ptr(fmt.Sprintf("%d Business St", g.rnd.Intn(999)+1)),
		SupplierRating:        ptr(math.Round((g.rnd.Float64()*2+3)*10) / 10),
		RestockLeadDays:       ptr(int64(g.rnd.Intn(14) + 1)),
		LastRestockDate:       ptr(now.AddDate(0, 0, -g.rnd.Intn(30)).Format(time.DateOnly)),
		NextExpectedRestock:   ptr(now.AddDate(0, 0, g.rnd.Intn(30)).Format(time.DateOnly)),
		LastRestockQty:        ptr(int64(g.rnd.Intn(100) + 20)),
		AutoReorderEnabled:    ptr(g.rnd.Float64() > 0.5),
		PredictedDemandNext7d: ptr(float64(g.rnd.Intn(50) + 5)),
		DaysUntilStockout:     ptr(float64(g.rnd.Intn(30) + 1)),
		ExpiryDays:            ptr(expiryDays),
		ExpiryDate:            ptr(now.AddDate(0, 0, int(expiryDays)).Format(time.DateOnly)),
		DaysUntilExpiry:       ptr(expiryDays),
		Expired:               ptr(expired),
		SalesHistory:          ptr(g.salesHistory()),
		WeeklySalesVolume:     ptr(float64(g.rnd.Intn(70))),
		SalesTrend:            ptr(pickOne(g.rnd, seedTrends)),
		CountryOfOrigin:       ptr(pickOne(g.rnd, seedCountries)),
		Organic:               ptr(category == "Food" && g.rnd.Intn(2) == 0),
		Rating:                ptr(math.Round((g.rnd.Float64()*2+3)*10) / 10),
		Barcode:               ptr(fmt.Sprintf("%012d", g.rnd.Int63n(1_000_000_000_000))),
		CreatedAt:             ptr(now.AddDate(0, -g.rnd.Intn(12), 0).Format(time.RFC3339)),
		LastUpdated:           ptr(now.Format(time.RFC3339)),
	}
}

func (g *Generator) salesHistory() string {
	days := make([]string, 7)
	for i := range days {
		days[i] = fmt.Sprintf("%d", g.rnd.Intn(10))
	}
	return strings.Join(days, ",")
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}

func ptr[T any](value T) *T {
	return &value
}
