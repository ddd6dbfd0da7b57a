package pricing

import (
	"github.com/umutugur/rezzy-core/internal/models"
)

// UnknownMenuLabel is used when a selection references a menu id that is not
// in the price list. Such selections price at 0.
const UnknownMenuLabel = "Unknown menu"

// Menu is one priced menu item of a restaurant.
type Menu struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// PriceList maps menu id to its canonical menu entry.
type PriceList map[string]Menu

// Line is the aggregated subtotal for one menu across all selections.
type Line struct {
	MenuID    string  `json:"menuId"`
	Label     string  `json:"label"`
	UnitPrice float64 `json:"unitPrice"`
	Count     int     `json:"count"`
	Subtotal  float64 `json:"subtotal"`
}

// Quote is the result of aggregating a draft's selections.
type Quote struct {
	Lines   []Line  `json:"lines"`
	Total   float64 `json:"total"`
	Deposit float64 `json:"deposit"`

	// IsValid is false when there is nothing to price; Reason says why so
	// callers can block submission with a message.
	IsValid bool   `json:"isValid"`
	Reason  string `json:"reason,omitempty"`
}

// Aggregate groups selections by menu id (in first-appearance order),
// multiplies unit price by count, and sums the subtotals. A selection's own
// Price wins over the price list; an unknown menu id prices at 0 with a
// placeholder label. depositRate is the fraction of the total due up front.
func Aggregate(selections []models.Selection, menus PriceList, depositRate float64) *Quote {
	quote := &Quote{Lines: make([]Line, 0, len(selections))}

	if len(selections) == 0 {
		quote.Reason = "no selections"
		return quote
	}

	index := make(map[string]int)
	for _, sel := range selections {
		unit, label := resolve(sel, menus)

		i, seen := index[sel.MenuID]
		if !seen {
			index[sel.MenuID] = len(quote.Lines)
			quote.Lines = append(quote.Lines, Line{
				MenuID:    sel.MenuID,
				Label:     label,
				UnitPrice: unit,
			})
			i = index[sel.MenuID]
		}
		quote.Lines[i].Count++
		quote.Lines[i].Subtotal += unit
	}

	for _, line := range quote.Lines {
		quote.Total += line.Subtotal
	}
	quote.Deposit = quote.Total * depositRate
	quote.IsValid = true
	return quote
}

func resolve(sel models.Selection, menus PriceList) (float64, string) {
	menu, ok := menus[sel.MenuID]
	label := menu.Name
	if !ok {
		label = UnknownMenuLabel
	}

	if sel.Price != nil {
		return *sel.Price, label
	}
	if ok {
		return menu.Price, label
	}
	return 0, label
}
