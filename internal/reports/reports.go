package reports

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/stockpilot/stockpilot/internal/aggregate"
	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

const (
	defaultListLimit = 10
	defaultTopLimit  = 5
)

type Summary struct {
	TotalItems      int64   `json:"total_items"`
	TotalValue      float64 `json:"total_value"`
	LowStockCount   int64   `json:"low_stock_count"`
	OutOfStockCount int64   `json:"out_of_stock_count"`
	ExpiredCount    int64   `json:"expired_count"`
	ActiveCount     int64   `json:"active_count"`
}

type Supplier struct {
	Name      string `json:"name"`
	Contact   string `json:"contact"`
	AvgRating string `json:"avg_rating"`
}

// Service answers the fixed inventory reports directly against the store,
// bypassing SQL translation.
type Service struct {
	store backend.Store
}

func NewService(store backend.Store) *Service {
	return &Service{store: store}
}

func (s *Service) LowStock(ctx context.Context, limit int) ([]inventory.Row, error) {
	rows, err := s.selectRows(ctx, backend.Query{Columns: []string{"item_name", "quantity", "threshold", "brand", "category", "supplier_name"}})
	if err != nil {
		return nil, err
	}
	low, err := aggregate.CompareColumns("quantity", backend.OpLt, "threshold")
	if err != nil {
		return nil, err
	}
	return aggregate.Apply(rows, aggregate.Spec{Predicate: low, SortBy: "quantity", Limit: orDefault(limit, defaultListLimit)}), nil
}

func (s *Service) OutOfStock(ctx context.Context, limit int) ([]inventory.Row, error) {
	return s.selectRows(ctx, backend.Query{
		Columns: []string{"item_name", "brand", "category", "days_out_of_stock"},
		Filters: []backend.Filter{{Column: "quantity", Op: backend.OpEq, Value: int64(0)}},
		Order:   &backend.Order{Column: "days_out_of_stock", Desc: true},
		Limit:   orDefault(limit, defaultListLimit),
	})
}

func (s *Service) TopSelling(ctx context.Context, limit int) ([]inventory.Row, error) {
	return s.selectRows(ctx, backend.Query{
		Columns: []string{"item_name", "brand", "sales_velocity", "sold_today", "weekly_sales_volume"},
		Order:   &backend.Order{Column: "sales_velocity", Desc: true},
		Limit:   orDefault(limit, defaultTopLimit),
	})
}

func (s *Service) MostExpensive(ctx context.Context, limit int) ([]inventory.Row, error) {
	return s.selectRows(ctx, backend.Query{
		Columns: []string{"item_name", "brand", "selling_price", "margin_percent", "category"},
		Order:   &backend.Order{Column: "selling_price", Desc: true},
		Limit:   orDefault(limit, defaultTopLimit),
	})
}

func (s *Service) Expired(ctx context.Context, limit int) ([]inventory.Row, error) {
	return s.selectRows(ctx, backend.Query{
		Columns: []string{"item_name", "brand", "category", "expiry_date", "quantity"},
		Filters: []backend.Filter{{Column: "expired", Op: backend.OpEq, Value: true}},
		Order:   &backend.Order{Column: "expiry_date"},
		Limit:   orDefault(limit, defaultListLimit),
	})
}

// ByCategory lists items alphabetically. An empty category lists every item; a
// category is matched case-insensitively.
func (s *Service) ByCategory(ctx context.Context, category string, limit int) ([]inventory.Row, error) {
	query := backend.Query{
		Columns: []string{"item_name", "brand", "category", "quantity", "selling_price"},
		Order:   &backend.Order{Column: "item_name"},
		Limit:   orDefault(limit, defaultListLimit),
	}
	if category != "" {
		query.Filters = []backend.Filter{{Column: "category", Op: backend.OpILike, Value: category}}
	}
	return s.selectRows(ctx, query)
}

// Suppliers groups items by supplier in first-appearance order. Ratings are
// averaged to one decimal, or "N/A" when no item carries one.
func (s *Service) Suppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := s.selectRows(ctx, backend.Query{
		Columns: []string{"supplier_name", "supplier_rating", "supplier_contact"},
		Filters: []backend.Filter{{Column: "supplier_name", Op: backend.OpNotNull}},
	})
	if err != nil {
		return nil, err
	}

	type tally struct {
		contact string
		sum     float64
		count   int
	}
	index := map[string]int{}
	var names []string
	var tallies []tally
	for _, row := range rows {
		name := row.Text("supplier_name")
		i, ok := index[name]
		if !ok {
			i = len(tallies)
			index[name] = i
			names = append(names, name)
			tallies = append(tallies, tally{contact: row.Text("supplier_contact")})
		}
		if rating := row.Number("supplier_rating"); rating != 0 {
			tallies[i].sum += rating
			tallies[i].count++
		}
	}

	suppliers := make([]Supplier, 0, len(tallies))
	for i, t := range tallies {
		rating := "N/A"
		if t.count > 0 {
			rating = strconv.FormatFloat(t.sum/float64(t.count), 'f', 1, 64)
		}
		suppliers = append(suppliers, Supplier{Name: names[i], Contact: t.contact, AvgRating: rating})
	}
	return suppliers, nil
}

// Summary runs its counts in parallel; every part is a single store call.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	var summary Summary
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		rows, err := s.selectRows(groupCtx, backend.Query{Columns: []string{"quantity", "threshold", "total_stock_value"}})
		if err != nil {
			return err
		}
		summary.TotalItems = int64(len(rows))
		for _, row := range rows {
			summary.TotalValue += row.Number("total_stock_value")
			if inventory.Compare(row["quantity"], row["threshold"]) < 0 {
				summary.LowStockCount++
			}
		}
		return nil
	})
	group.Go(func() error {
		count, err := s.count(groupCtx, backend.Filter{Column: "quantity", Op: backend.OpEq, Value: int64(0)})
		summary.OutOfStockCount = count
		return err
	})
	group.Go(func() error {
		count, err := s.count(groupCtx, backend.Filter{Column: "expired", Op: backend.OpEq, Value: true})
		summary.ExpiredCount = count
		return err
	})
	group.Go(func() error {
		count, err := s.count(groupCtx, backend.Filter{Column: "status", Op: backend.OpEq, Value: "active"})
		summary.ActiveCount = count
		return err
	})

	if err := group.Wait(); err != nil {
		return Summary{}, err
	}
	return summary, nil
}

// Suggestions proposes follow-up questions based on the summary.
func Suggestions(summary Summary) []string {
	var suggestions []string
	if summary.LowStockCount > 0 {
		suggestions = append(suggestions, "You have "+strconv.FormatInt(summary.LowStockCount, 10)+" items running low - want to see which ones?")
	}
	if summary.OutOfStockCount > 0 {
		suggestions = append(suggestions, strconv.FormatInt(summary.OutOfStockCount, 10)+" items are completely out of stock")
	}
	return append(suggestions,
		"View your top selling products",
		"Show me my most expensive inventory",
		"What's my total inventory value?",
	)
}

// DefaultSuggestions is offered when the summary cannot be computed.
func DefaultSuggestions() []string {
	return []string{
		"Show me my inventory summary",
		"What items are running low?",
		"Which products sell the best?",
	}
}

func (s *Service) selectRows(ctx context.Context, query backend.Query) ([]inventory.Row, error) {
	rows, err := s.store.Select(ctx, query)
	if err != nil {
		return nil, &backend.Error{Op: "select", Err: err}
	}
	return rows, nil
}

func (s *Service) count(ctx context.Context, filters ...backend.Filter) (int64, error) {
	count, err := s.store.Count(ctx, filters)
	if err != nil {
		return 0, &backend.Error{Op: "count", Err: err}
	}
	return count, nil
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
