package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lamoy/api/internal/database"
	"github.com/lamoy/api/internal/enum"
	"github.com/shopspring/decimal"
)

const (
	recentOrdersLimit   = 5
	recentActivityFetch = 10
	recentActivityKeep  = 4
	salesWindowDays     = 7
	// A nonzero day never renders below this percentage, so small bars stay
	// visible on the chart.
	minVisiblePercentage = 5
)

// statusColors are the fixed display colors the admin frontend renders for
// the status distribution chart.
var statusColors = map[enum.OrderStatus]string{
	enum.OrderStatusPending:   "#f59e0b",
	enum.OrderStatusPreparing: "#3b82f6",
	enum.OrderStatusReady:     "#8b5cf6",
	enum.OrderStatusDelivered: "#10b981",
	enum.OrderStatusCancelled: "#ef4444",
}

// DashboardStore defines the aggregation queries the dashboard needs.
// Satisfied by *database.Queries.
type DashboardStore interface {
	GetSalesSummary(ctx context.Context) (database.GetSalesSummaryRow, error)
	GetSalesBetween(ctx context.Context, arg database.GetSalesBetweenParams) (pgtype.Numeric, error)
	GetDailySales(ctx context.Context, since time.Time) ([]database.GetDailySalesRow, error)
	GetStatusCounts(ctx context.Context) ([]database.GetStatusCountsRow, error)
	ListRecentOrders(ctx context.Context, limit int32) ([]database.ListRecentOrdersRow, error)
	CountCustomers(ctx context.Context) (int64, error)
}

// Dashboard is the aggregated metrics payload for the admin back office.
type Dashboard struct {
	TotalSales              string               `json:"total_sales"`
	TotalOrders             int64                `json:"total_orders"`
	ActiveUsers             int64                `json:"active_users"`
	MonthlyGrowth           float64              `json:"monthly_growth"`
	RecentOrders            []RecentOrder        `json:"recent_orders"`
	SalesData               []SalesPoint         `json:"sales_data"`
	OrderStatusDistribution []StatusDistribution `json:"order_status_distribution"`
	RecentActivity          []ActivityEntry      `json:"recent_activity"`
}

// RecentOrder is one row in the "latest orders" panel.
type RecentOrder struct {
	ID           int64     `json:"id"`
	CustomerName string    `json:"customer_name"`
	TotalPrice   string    `json:"total_price"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// SalesPoint is one bar of the trailing 7-day sales histogram. Percentage is
// relative to the best day in the window.
type SalesPoint struct {
	Date       string `json:"date"`
	Label      string `json:"label"`
	Total      string `json:"total"`
	Percentage int    `json:"percentage"`
}

// StatusDistribution is one slice of the status chart. Unlike the sales
// totals, the percentages are taken over all orders including cancelled ones.
type StatusDistribution struct {
	Status     string  `json:"status"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
	Color      string  `json:"color"`
}

// ActivityEntry is one line in the recent activity feed.
type ActivityEntry struct {
	Action      string `json:"action"`
	Description string `json:"description"`
	Time        string `json:"time"`
}

// DashboardService computes the admin dashboard from order history at request
// time. No caching; every call reflects the current order book.
type DashboardService struct {
	store DashboardStore
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store DashboardStore) *DashboardService {
	return &DashboardService{store: store}
}

// GetDashboard runs the aggregation queries and assembles the payload.
// Admin only. All day and month boundaries are computed in UTC because the
// persistence layer does not guarantee a timezone tag survives a round trip.
func (s *DashboardService) GetDashboard(ctx context.Context, identity Identity) (*Dashboard, error) {
	if !identity.IsAdmin() {
		return nil, ErrForbidden
	}

	now := time.Now().UTC()

	summary, err := s.store.GetSalesSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("get sales summary: %w", err)
	}

	customers, err := s.store.CountCustomers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count customers: %w", err)
	}

	growth, err := s.monthlyGrowth(ctx, now)
	if err != nil {
		return nil, err
	}

	recentOrders, err := s.recentOrders(ctx)
	if err != nil {
		return nil, err
	}

	salesData, err := s.salesHistogram(ctx, now)
	if err != nil {
		return nil, err
	}

	distribution, err := s.statusDistribution(ctx)
	if err != nil {
		return nil, err
	}

	activity, err := s.recentActivity(ctx, now)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		TotalSales:              numericToDecimal(summary.TotalSales).StringFixed(2),
		TotalOrders:             summary.TotalOrders,
		ActiveUsers:             customers,
		MonthlyGrowth:           growth,
		RecentOrders:            recentOrders,
		SalesData:               salesData,
		OrderStatusDistribution: distribution,
		RecentActivity:          activity,
	}, nil
}

// monthlyGrowth compares current-calendar-month sales against the previous
// month: 0 when both are zero, 100 when only the previous is zero, otherwise
// the percentage delta rounded to one decimal.
func (s *DashboardService) monthlyGrowth(ctx context.Context, now time.Time) (float64, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevStart := monthStart.AddDate(0, -1, 0)
	nextStart := monthStart.AddDate(0, 1, 0)

	currentN, err := s.store.GetSalesBetween(ctx, database.GetSalesBetweenParams{Start: monthStart, End: nextStart})
	if err != nil {
		return 0, fmt.Errorf("get current month sales: %w", err)
	}
	previousN, err := s.store.GetSalesBetween(ctx, database.GetSalesBetweenParams{Start: prevStart, End: monthStart})
	if err != nil {
		return 0, fmt.Errorf("get previous month sales: %w", err)
	}

	current := numericToDecimal(currentN)
	previous := numericToDecimal(previousN)

	switch {
	case current.IsZero() && previous.IsZero():
		return 0, nil
	case previous.IsZero():
		return 100, nil
	default:
		growth := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
		return growth.Round(1).InexactFloat64(), nil
	}
}

func (s *DashboardService) recentOrders(ctx context.Context) ([]RecentOrder, error) {
	rows, err := s.store.ListRecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	out := make([]RecentOrder, 0, len(rows))
	for _, row := range rows {
		name := "Guest"
		if row.CustomerName.Valid && row.CustomerName.String != "" {
			name = row.CustomerName.String
		}
		out = append(out, RecentOrder{
			ID:           row.ID,
			CustomerName: name,
			TotalPrice:   numericToDecimal(row.TotalPrice).StringFixed(2),
			Status:       row.Status.String(),
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

// salesHistogram builds the trailing-7-day bars including today. Days with no
// sales still get a point so the chart always has 7 bars.
func (s *DashboardService) salesHistogram(ctx context.Context, now time.Time) ([]SalesPoint, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	windowStart := today.AddDate(0, 0, -(salesWindowDays - 1))

	rows, err := s.store.GetDailySales(ctx, windowStart)
	if err != nil {
		return nil, fmt.Errorf("get daily sales: %w", err)
	}

	byDay := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		if !row.SaleDate.Valid {
			continue
		}
		byDay[row.SaleDate.Time.Format("2006-01-02")] = numericToDecimal(row.Total)
	}

	maxTotal := decimal.Zero
	totals := make([]decimal.Decimal, salesWindowDays)
	for i := 0; i < salesWindowDays; i++ {
		day := windowStart.AddDate(0, 0, i)
		total := byDay[day.Format("2006-01-02")]
		totals[i] = total
		if total.GreaterThan(maxTotal) {
			maxTotal = total
		}
	}

	points := make([]SalesPoint, 0, salesWindowDays)
	for i := 0; i < salesWindowDays; i++ {
		day := windowStart.AddDate(0, 0, i)
		total := totals[i]

		pct := 0
		if maxTotal.IsPositive() {
			pct = int(total.Div(maxTotal).Mul(decimal.NewFromInt(100)).Round(0).IntPart())
		}
		if total.IsPositive() && pct < minVisiblePercentage {
			pct = minVisiblePercentage
		}

		points = append(points, SalesPoint{
			Date:       day.Format("2006-01-02"),
			Label:      day.Format("Mon"),
			Total:      total.StringFixed(2),
			Percentage: pct,
		})
	}
	return points, nil
}

// statusDistribution reports a row for every status, zero counts included.
// Percentages are over the full order count, cancelled orders included, so
// this total deliberately differs from TotalOrders whenever cancellations
// exist.
func (s *DashboardService) statusDistribution(ctx context.Context) ([]StatusDistribution, error) {
	rows, err := s.store.GetStatusCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("get status counts: %w", err)
	}

	counts := make(map[enum.OrderStatus]int64, len(rows))
	var total int64
	for _, row := range rows {
		counts[row.Status] = row.Count
		total += row.Count
	}

	out := make([]StatusDistribution, 0, len(enum.AllOrderStatuses()))
	for _, status := range enum.AllOrderStatuses() {
		count := counts[status]
		pct := 0.0
		if total > 0 {
			pct = decimal.NewFromInt(count).
				Div(decimal.NewFromInt(total)).
				Mul(decimal.NewFromInt(100)).
				Round(1).InexactFloat64()
		}
		out = append(out, StatusDistribution{
			Status:     status.String(),
			Count:      count,
			Percentage: pct,
			Color:      statusColors[status],
		})
	}
	return out, nil
}

// recentActivity maps the newest orders to human-readable feed entries. More
// rows are fetched than kept, leaving headroom for entries a future mapping
// might skip.
func (s *DashboardService) recentActivity(ctx context.Context, now time.Time) ([]ActivityEntry, error) {
	rows, err := s.store.ListRecentOrders(ctx, recentActivityFetch)
	if err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}

	entries := make([]ActivityEntry, 0, len(rows))
	for _, row := range rows {
		action, description := activityText(row.Status, row.ID)
		entries = append(entries, ActivityEntry{
			Action:      action,
			Description: description,
			Time:        relativeTime(now, row.CreatedAt.UTC()),
		})
	}

	if len(entries) > recentActivityKeep {
		entries = entries[:recentActivityKeep]
	}
	return entries, nil
}

func activityText(status enum.OrderStatus, orderID int64) (string, string) {
	switch status {
	case enum.OrderStatusPending:
		return "New order received", fmt.Sprintf("Order #%d is awaiting confirmation", orderID)
	case enum.OrderStatusPreparing:
		return "Order in the kitchen", fmt.Sprintf("Order #%d is being prepared", orderID)
	case enum.OrderStatusReady:
		return "Order ready", fmt.Sprintf("Order #%d is ready for delivery", orderID)
	case enum.OrderStatusDelivered:
		return "Order delivered", fmt.Sprintf("Order #%d was delivered to the customer", orderID)
	case enum.OrderStatusCancelled:
		return "Order cancelled", fmt.Sprintf("Order #%d was cancelled", orderID)
	default:
		return "Order updated", fmt.Sprintf("Order #%d was updated", orderID)
	}
}

// relativeTime renders a coarse "N units ago" string, falling back to an
// absolute date beyond 30 days.
func relativeTime(now, t time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d mins ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	case diff <= 30*24*time.Hour:
		return fmt.Sprintf("%d weeks ago", int(diff.Hours()/(24*7)))
	default:
		return t.Format("Jan 2, 2006")
	}
}
